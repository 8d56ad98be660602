package models

// UpdateOptionsRequest changes only the fields that are present.
type UpdateOptionsRequest struct {
	EnableAjax    *bool `json:"enable_ajax"`
	PollInterval  *int  `json:"poll_interval"`
	EnableCSS     *bool `json:"enable_css"`
	ShowFeed      *bool `json:"show_feed"`
	ResetSettings bool  `json:"reset_settings"`
}

type Dashboard struct {
	PublishedTicks int `json:"publishedTicks"`
	DraftTicks     int `json:"draftTicks"`
	Tickers        int `json:"tickers"`
}
