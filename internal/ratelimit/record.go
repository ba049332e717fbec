package ratelimit

import "time"

// Record is the per-identifier accounting unit of a fixed window.
type Record struct {
	// Requests counted in the current window.
	Requests int64 `json:"requests"`
	// Expires is the unix time in milliseconds at which the window resets.
	Expires int64 `json:"expires"`
}

// Stale reports whether the window that produced the record has elapsed.
// A stale record must be treated as absent.
func (r Record) Stale(now int64) bool {
	return now >= r.Expires
}

// Quota is the number of requests allowed per window.
type Quota struct {
	Max    int64 `json:"max"    yaml:"max"`
	Window int64 `json:"window" yaml:"window"` // seconds
}

const (
	// DefaultMax is the quota applied when no resolver is configured.
	DefaultMax int64 = 100
	// DefaultWindow is the window length in seconds applied when no resolver is configured.
	DefaultWindow int64 = 60
)

// DefaultQuota returns 100 requests per 60 seconds.
func DefaultQuota() Quota {
	return Quota{Max: DefaultMax, Window: DefaultWindow}
}

// Validate reports ErrInvalidQuota when max or window are not positive.
func (q Quota) Validate() error {
	if q.Max <= 0 || q.Window <= 0 {
		return ErrInvalidQuota
	}

	return nil
}

// WindowDuration returns the window as a time.Duration.
func (q Quota) WindowDuration() time.Duration {
	return time.Duration(q.Window) * time.Second
}

// Clock supplies the current time.
type Clock func() time.Time
