package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

// DefaultRecent is how many recent events Redis keeps.
const DefaultRecent = 1000

// Redis is an audit.Store keeping per-key counters by event kind and a
// capped list of the most recent events.
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	maxItems int64
}

// NewRedis creates a new Redis-backed audit store.
func NewRedis(client redis.UniversalClient, maxItems int64) *Redis {
	if maxItems <= 0 {
		maxItems = DefaultRecent
	}

	return &Redis{client: client, prefix: "ratelimit:audit:", maxItems: maxItems}
}

func (r *Redis) SaveEvent(ctx context.Context, event *ratelimit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	recent := r.prefix + "recent"

	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, r.prefix+string(event.Kind), event.Key, 1)
	pipe.LPush(ctx, recent, payload)
	pipe.LTrim(ctx, recent, 0, r.maxItems-1)

	_, err = pipe.Exec(ctx)

	return err
}

// Count returns how many events of kind were recorded for key.
func (r *Redis) Count(ctx context.Context, kind ratelimit.EventKind, key string) (int64, error) {
	n, err := r.client.HGet(ctx, r.prefix+string(kind), key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return n, err
}

// Recent returns up to n of the latest events, newest first.
func (r *Redis) Recent(ctx context.Context, n int64) ([]ratelimit.Event, error) {
	raw, err := r.client.LRange(ctx, r.prefix+"recent", 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]ratelimit.Event, 0, len(raw))

	for _, item := range raw {
		var event ratelimit.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}
