package config

import (
	"encoding/json"
	"fmt"
)

// OptionsName is the key the runtime options are stored under.
const OptionsName = "liveticker"

// Options are the runtime settings editors can change without a restart.
type Options struct {
	EnableAjax   bool `json:"enable_ajax"`
	PollInterval int  `json:"poll_interval"`
	EnableCSS    bool `json:"enable_css"`
	ShowFeed     bool `json:"show_feed"`
}

func DefaultOptions() Options {
	return Options{
		EnableAjax:   true,
		PollInterval: 60,
		EnableCSS:    true,
		ShowFeed:     false,
	}
}

// ParseOptions decodes a stored options document on top of the defaults,
// so keys missing from raw keep their default value.
func ParseOptions(raw []byte) (Options, error) {
	opts := DefaultOptions()
	if len(raw) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return DefaultOptions(), fmt.Errorf("parse options: %w", err)
	}
	return opts, nil
}

// PollIntervalMs is the client timer interval in milliseconds.
func (o Options) PollIntervalMs() int {
	return o.PollInterval * 1000
}

func (o Options) Validate() error {
	if o.PollInterval < 1 {
		return fmt.Errorf("poll interval must be at least 1 second, got %d", o.PollInterval)
	}
	return nil
}
