package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// PollRequestItem is one entry of a poll batch. Exactly one of Ticker or Widget
// identifies the target; an item with neither is skipped.
type PollRequestItem struct {
	Ticker *string   `json:"s"`
	Widget *string   `json:"w"`
	Limit  *LooseInt `json:"l"`
	Since  *LooseInt `json:"t"`
}

type PollResponseItem struct {
	Ticker *string `json:"s,omitempty"`
	Widget *string `json:"w,omitempty"`
	HTML   string  `json:"h"`
	Time   int64   `json:"t"`
}

// MaxSince is the latest poll time accepted, 9999-12-31 23:59:59 UTC.
const MaxSince = 253402300799

var ErrOutOfRange = errors.New("poll value out of range")

// Valid reports whether the item names a target and carries a since time the
// store can compare against.
func (p PollRequestItem) Valid() bool {
	if p.Ticker == nil && p.Widget == nil {
		return false
	}
	return p.Since == nil || (*p.Since >= 0 && *p.Since <= MaxSince)
}

// LooseInt accepts a JSON number or a numeric string. Anything that does not
// start with an integer reads as 0. Values that do not fit in an int64 are an error.
type LooseInt int64

func (n *LooseInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := leadingInt(s)
		if err != nil {
			return err
		}
		*n = LooseInt(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return ErrOutOfRange
	}
	*n = LooseInt(int64(f))
	return nil
}

func leadingInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrOutOfRange
	}
	if err != nil {
		return 0, nil
	}
	return v, nil
}
