package ratelimit

import (
	"context"
)

// Store persists Records by identifier key.
//
// Get and Set are individually safe for concurrent use, but nothing makes a
// Get followed by a Set atomic: two requests for the same key may read the
// same Record and both write Requests+1.
type Store interface {
	// Get returns the Record for key, or ErrNotFound when there is none.
	Get(ctx context.Context, key string) (Record, error)

	// Set upserts the Record for key, replacing it wholesale.
	Set(ctx context.Context, key string, record Record) error
}
