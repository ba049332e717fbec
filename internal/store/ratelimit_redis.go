package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store.
//
// Records are stored as JSON strings under prefix+key with a native expiry,
// so Redis evicts them on its own. Reads and writes are separate commands;
// no atomic increment is used.
type RateLimitRedisStore struct {
	client redis.UniversalClient
	prefix string
	expiry time.Duration
	clock  ratelimit.Clock
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
// expiry is the TTL applied when a record's own window gives none.
func NewRateLimitRedisStore(client redis.UniversalClient, expiry time.Duration) *RateLimitRedisStore {
	if expiry <= 0 {
		expiry = DefaultWindow
	}

	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
		expiry: expiry,
		clock:  time.Now,
	}
}

func (r *RateLimitRedisStore) Get(ctx context.Context, key string) (ratelimit.Record, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ratelimit.Record{}, ratelimit.ErrNotFound
		}

		return ratelimit.Record{}, err
	}

	var record ratelimit.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return ratelimit.Record{}, fmt.Errorf("decode record %q: %w", key, err)
	}

	return record, nil
}

func (r *RateLimitRedisStore) Set(ctx context.Context, key string, record ratelimit.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.prefix+key, payload, r.ttl(record)).Err()
}

// ttl keeps a record alive until its window expires. Records whose window
// already elapsed fall back to the configured expiry.
func (r *RateLimitRedisStore) ttl(record ratelimit.Record) time.Duration {
	remaining := time.Duration(record.Expires-r.clock().UnixMilli()) * time.Millisecond
	if remaining <= 0 {
		return r.expiry
	}

	return remaining
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitRedisStore)(nil)
