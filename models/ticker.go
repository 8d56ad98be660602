package models

import "time"

type CreateTickerRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Parent      string `json:"parent"`
}

type Ticker struct {
	ID          int       `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *int      `json:"parentId"`
	FeedURL     string    `json:"feedUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

type GetTickersResponse struct {
	Tickers []Ticker `json:"tickers"`
}
