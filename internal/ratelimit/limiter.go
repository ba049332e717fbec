// Package ratelimit implements a fixed-window request rate limiter.
//
// Each identifier key owns a Record counting requests in the current window.
// The window resets entirely once it expires, so a client can burst up to
// twice the quota across a window boundary.
//
// The check-and-increment in FixedWindowLimiter.Evaluate is a plain
// read-modify-write against the Store. Concurrent requests for the same key
// can both observe the same Record and both be admitted as the Nth request,
// so a busy key may be over-admitted relative to its quota. No backend adds
// locking or atomic increments on top of that.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Decision is the result of evaluating a request against its quota.
type Decision struct {
	Allowed bool
	// RetryAfter is the number of seconds until the window resets. Zero when allowed.
	RetryAfter int64
	// Record is the state written for an admitted request, or the unchanged
	// prior state for a rejected one.
	Record Record
}

// FixedWindowLimiter implements the fixed-window counter algorithm on top of a Store.
type FixedWindowLimiter struct {
	store Store
}

// NewFixedWindowLimiter creates a new fixed-window limiter.
func NewFixedWindowLimiter(store Store) *FixedWindowLimiter {
	return &FixedWindowLimiter{store: store}
}

// Evaluate decides whether the request at now (unix milliseconds) is admitted
// given the Record read before the decision. A nil prior means absent.
//
// A request arriving exactly at prior.Expires starts a new window. Exactly
// quota.Max requests are admitted per window.
func (l *FixedWindowLimiter) Evaluate(
	ctx context.Context, quota Quota, now int64, key string, prior *Record,
) (Decision, error) {
	if prior == nil || prior.Stale(now) {
		fresh := Record{Requests: 1, Expires: now + quota.Window*1000}
		if err := l.store.Set(ctx, key, fresh); err != nil {
			return Decision{}, fmt.Errorf("start window for %q: %w", key, err)
		}

		return Decision{Allowed: true, Record: fresh}, nil
	}

	if prior.Requests > quota.Max-1 {
		return Decision{
			Allowed:    false,
			RetryAfter: ceilSeconds(prior.Expires - now),
			Record:     *prior,
		}, nil
	}

	next := Record{Requests: prior.Requests + 1, Expires: prior.Expires}
	if err := l.store.Set(ctx, key, next); err != nil {
		return Decision{}, fmt.Errorf("increment window for %q: %w", key, err)
	}

	return Decision{Allowed: true, Record: next}, nil
}

// Compensate takes back one counted request for key. It re-reads the current
// Record rather than trusting the request-time snapshot, since the window may
// have rolled over in the meantime. An absent Record is left absent; a
// present one is decremented by exactly one, even below zero.
func (l *FixedWindowLimiter) Compensate(ctx context.Context, key string) error {
	current, err := l.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read record for %q: %w", key, err)
	}

	current.Requests--

	if err := l.store.Set(ctx, key, current); err != nil {
		return fmt.Errorf("compensate record for %q: %w", key, err)
	}

	return nil
}

// Store returns the underlying record store.
func (l *FixedWindowLimiter) Store() Store {
	return l.store
}

// ceilSeconds rounds a millisecond duration up to whole seconds.
func ceilSeconds(ms int64) int64 {
	return int64(math.Ceil(float64(ms) / 1000))
}
