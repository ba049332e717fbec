package store

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Backend selects the rate limit store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendMongo    Backend = "mongo"
	BackendPostgres Backend = "postgres"
)

// Config selects a backend and carries the client handle it needs.
type Config struct {
	Backend Backend
	// Window is the sweep fallback of the memory store and the default TTL of Redis records.
	Window time.Duration

	Redis    redis.UniversalClient
	Mongo    *mongo.Database
	Postgres *pgxpool.Pool
}

// NewRateLimitStore builds the store selected by cfg. Selecting an external
// backend without its client handle is a configuration error; there is no
// fallback to memory.
func NewRateLimitStore(cfg Config) (ratelimit.Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewRateLimitMemoryStore(cfg.Window), nil
	case BackendRedis:
		if cfg.Redis == nil {
			return nil, missingHandle(cfg.Backend)
		}

		return NewRateLimitRedisStore(cfg.Redis, cfg.Window), nil
	case BackendMongo:
		if cfg.Mongo == nil {
			return nil, missingHandle(cfg.Backend)
		}

		return NewRateLimitMongoStore(cfg.Mongo), nil
	case BackendPostgres:
		if cfg.Postgres == nil {
			return nil, missingHandle(cfg.Backend)
		}

		return NewRateLimitPostgresStore(cfg.Postgres), nil
	default:
		return nil, ratelimit.NewConfigError("storeType", ratelimit.ErrUnsupportedStore)
	}
}

func missingHandle(backend Backend) error {
	return ratelimit.NewConfigError("externalStoreHandle ("+string(backend)+")", ratelimit.ErrMissingStoreHandle)
}
