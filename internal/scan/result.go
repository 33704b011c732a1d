package scan

import "time"

// Result is the outcome of the last completed scan.
type Result struct {
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"captured_at"`
}

// Visible reports whether the result is still within its display window.
// The window end is inclusive. The zero Result is never visible.
func (r Result) Visible(now time.Time, window time.Duration) bool {
	if r.CapturedAt.IsZero() {
		return false
	}
	return now.Sub(r.CapturedAt) <= window
}
