// Package scan decides when the ROI is read and holds the last reading.
package scan

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how scans are triggered.
type Mode int

const (
	// Manual scans only on an explicit request.
	Manual Mode = iota
	// Interval scans on a fixed period and ignores explicit requests.
	Interval
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Interval:
		return "interval"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "manual" or "interval", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual", "":
		return Manual, nil
	case "interval":
		return Interval, nil
	}
	return Manual, fmt.Errorf("unknown scan mode %q", s)
}

// Policy is the scan scheduler. lastScanAt only moves when a scan executes.
type Policy struct {
	Mode     Mode
	Interval time.Duration

	lastScanAt time.Time
}

// NewPolicy creates a policy. A non-positive interval in Interval mode scans every tick.
func NewPolicy(mode Mode, interval time.Duration) *Policy {
	return &Policy{Mode: mode, Interval: interval}
}

// Due reports whether a scan should run this tick.
// In Interval mode a policy that has never scanned is due immediately.
func (p *Policy) Due(now time.Time, requested bool) bool {
	switch p.Mode {
	case Interval:
		if p.lastScanAt.IsZero() {
			return true
		}
		return now.Sub(p.lastScanAt) >= p.Interval
	default:
		return requested
	}
}

// MarkScanned records that a scan ran at now.
func (p *Policy) MarkScanned(now time.Time) {
	p.lastScanAt = now
}

// LastScanAt returns the time of the last executed scan, zero if none.
func (p *Policy) LastScanAt() time.Time {
	return p.lastScanAt
}

// Remaining returns the time until the next interval scan, never negative.
// It is zero in Manual mode and before the first scan.
func (p *Policy) Remaining(now time.Time) time.Duration {
	if p.Mode != Interval || p.lastScanAt.IsZero() {
		return 0
	}
	left := p.Interval - now.Sub(p.lastScanAt)
	if left < 0 {
		return 0
	}
	return left
}
