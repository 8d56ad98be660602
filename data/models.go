package data

import "time"

// TickQuery selects published ticks of one ticker and its descendants.
type TickQuery struct {
	Ticker string
	// Limit < 0 means unlimited.
	Limit int
	// After, when set, keeps only ticks created strictly after it.
	After *time.Time
	// Before, when set, keeps only ticks created at or before it, hiding scheduled ticks.
	Before *time.Time
}

type Counts struct {
	Published int `db:"published"`
	Drafts    int `db:"drafts"`
	Tickers   int `db:"tickers"`
}
