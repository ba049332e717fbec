package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

const createRateLimitsTable = `
	CREATE TABLE IF NOT EXISTS rate_limits (
		key      TEXT PRIMARY KEY,
		requests BIGINT NOT NULL,
		expires  BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rate_limits_expires ON rate_limits (expires);
`

// RateLimitPostgresStore is a PostgreSQL implementation of ratelimit.Store.
// PostgreSQL has no native expiry, so stale rows are removed by DeleteExpired.
type RateLimitPostgresStore struct {
	pool *pgxpool.Pool
}

// NewRateLimitPostgresStore creates a new PostgreSQL-backed rate limit store.
func NewRateLimitPostgresStore(pool *pgxpool.Pool) *RateLimitPostgresStore {
	return &RateLimitPostgresStore{pool: pool}
}

// EnsureSchema creates the rate_limits table when it does not exist.
func (p *RateLimitPostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createRateLimitsTable)

	return err
}

func (p *RateLimitPostgresStore) Get(ctx context.Context, key string) (ratelimit.Record, error) {
	query := `SELECT requests, expires FROM rate_limits WHERE key = $1`

	var record ratelimit.Record

	err := p.pool.QueryRow(ctx, query, key).Scan(&record.Requests, &record.Expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ratelimit.Record{}, ratelimit.ErrNotFound
		}

		return ratelimit.Record{}, err
	}

	return record, nil
}

func (p *RateLimitPostgresStore) Set(ctx context.Context, key string, record ratelimit.Record) error {
	query := `
		INSERT INTO rate_limits (key, requests, expires)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET requests = EXCLUDED.requests, expires = EXCLUDED.expires
	`
	_, err := p.pool.Exec(ctx, query, key, record.Requests, record.Expires)

	return err
}

// DeleteExpired removes rows whose window ended before the given time or
// whose count dropped to zero, and returns how many were removed.
func (p *RateLimitPostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM rate_limits WHERE expires <= $1 OR requests = 0`,
		before.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitPostgresStore)(nil)
