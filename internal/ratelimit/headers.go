package ratelimit

import (
	"fmt"
	"strconv"
)

// Dialect selects the header naming convention used to report quota state.
type Dialect string

const (
	// DialectLegacy emits X-RateLimit-* headers and Retry-After on rejection.
	DialectLegacy Dialect = "legacy"
	// DialectDraft6 emits RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset.
	DialectDraft6 Dialect = "draft-6"
	// DialectDraft7 emits lowercase limit, remaining and reset.
	DialectDraft7 Dialect = "draft-7"
	// DialectDraft8 emits a single combined RateLimit header.
	DialectDraft8 Dialect = "draft-8"
)

// Header names.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderPolicy     = "RateLimit-Policy"
)

// ParseDialect validates a configured dialect name. The empty string selects legacy.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(s); d {
	case "":
		return DialectLegacy, nil
	case DialectLegacy, DialectDraft6, DialectDraft7, DialectDraft8:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, s)
	}
}

// Header is a single response header.
type Header struct {
	Name  string
	Value string
}

// HeaderState is the quota state rendered into headers.
type HeaderState struct {
	Limit       int64
	Requests    int64
	Expires     int64 // unix milliseconds
	Window      int64 // seconds
	RequestTime int64 // unix milliseconds
}

// BuildHeaders renders state in the given dialect. Unknown dialects render as legacy.
//
// Remaining is reported as Limit-Requests without clamping, and Reset is the
// absolute number of seconds between RequestTime and Expires.
func BuildHeaders(dialect Dialect, state HeaderState) []Header {
	limit := strconv.FormatInt(state.Limit, 10)
	remaining := strconv.FormatInt(state.Limit-state.Requests, 10)
	reset := strconv.FormatInt(abs(ceilSeconds(state.Expires-state.RequestTime)), 10)
	policy := Header{Name: HeaderPolicy, Value: fmt.Sprintf("%d;w=%d", state.Limit, state.Window)}

	switch dialect {
	case DialectDraft6:
		return []Header{
			policy,
			{Name: "RateLimit-Limit", Value: limit},
			{Name: "RateLimit-Remaining", Value: remaining},
			{Name: "RateLimit-Reset", Value: reset},
		}
	case DialectDraft7:
		return []Header{
			policy,
			{Name: "limit", Value: limit},
			{Name: "remaining", Value: remaining},
			{Name: "reset", Value: reset},
		}
	case DialectDraft8:
		return []Header{
			policy,
			{Name: "RateLimit", Value: limit + ", " + remaining + ", " + reset},
		}
	default:
		return []Header{
			{Name: "X-RateLimit-Limit", Value: limit},
			{Name: "X-RateLimit-Remaining", Value: remaining},
			{Name: "X-RateLimit-Reset", Value: reset},
		}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
