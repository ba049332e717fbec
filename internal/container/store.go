package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-go/internal/health"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"github.com/serroba/ratelimit-go/internal/store"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Clients holds the connections opened for the configured backends.
// Fields of backends that are not in use stay nil.
type Clients struct {
	Redis    redis.UniversalClient
	Mongo    *mongo.Client
	Postgres *pgxpool.Pool
}

// Shutdown closes every open connection.
func (c *Clients) Shutdown() error {
	var errs []error

	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}

	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		errs = append(errs, c.Mongo.Disconnect(ctx))
	}

	if c.Postgres != nil {
		c.Postgres.Close()
	}

	return errors.Join(errs...)
}

// rateLimitStore owns the selected store together with its janitor, if any.
type rateLimitStore struct {
	ratelimit.Store

	janitor *store.Janitor
}

// Shutdown stops the janitor and the store's own background work.
func (s *rateLimitStore) Shutdown() error {
	var errs []error

	if s.janitor != nil {
		errs = append(errs, s.janitor.Shutdown())
	}

	if sh, ok := s.Store.(do.Shutdownable); ok {
		errs = append(errs, sh.Shutdown())
	}

	return errors.Join(errs...)
}

// StorePackage provides the backend connections, the rate limit store and
// the health handler checking it.
func StorePackage(i *do.Injector) {
	do.Provide(i, newClients)
	do.Provide(i, newRateLimitStore)
	do.Provide(i, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)

		clients, err := do.Invoke[*Clients](i)
		if err != nil {
			return nil, err
		}

		var checker health.Checker

		switch store.Backend(opts.StoreType) {
		case store.BackendRedis:
			checker = health.NewRedisChecker(clients.Redis)
		case store.BackendMongo:
			checker = health.NewMongoChecker(clients.Mongo)
		case store.BackendPostgres:
			checker = health.NewPostgresChecker(clients.Postgres)
		}

		return health.NewHandler(opts.StoreType, checker), nil
	})
}

func newClients(i *do.Injector) (*Clients, error) {
	opts := do.MustInvoke[*Options](i)
	clients := &Clients{}

	if opts.needsRedis() {
		clients.Redis = redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
	}

	switch store.Backend(opts.StoreType) {
	case store.BackendMongo:
		client, err := mongo.Connect(opts.mongoClientOptions())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect mongo: %w", err), clients.Shutdown())
		}

		clients.Mongo = client
	case store.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresURL)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect postgres: %w", err), clients.Shutdown())
		}

		clients.Postgres = pool
	}

	return clients, nil
}

func (o *Options) mongoClientOptions() *options.ClientOptions {
	return options.Client().ApplyURI(o.MongoURI)
}

func newRateLimitStore(i *do.Injector) (ratelimit.Store, error) {
	opts := do.MustInvoke[*Options](i)
	logger := do.MustInvoke[*zap.Logger](i)

	clients, err := do.Invoke[*Clients](i)
	if err != nil {
		return nil, err
	}

	window := time.Duration(opts.Window) * time.Second
	cfg := store.Config{
		Backend:  store.Backend(opts.StoreType),
		Window:   window,
		Redis:    clients.Redis,
		Postgres: clients.Postgres,
	}

	if clients.Mongo != nil {
		cfg.Mongo = clients.Mongo.Database(opts.MongoDatabase)
	}

	s, err := store.NewRateLimitStore(cfg)
	if err != nil {
		return nil, err
	}

	owned := &rateLimitStore{Store: s}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch backend := s.(type) {
	case *store.RateLimitMongoStore:
		if err := backend.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
	case *store.RateLimitPostgresStore:
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}

		owned.janitor = store.NewJanitor(backend, window, logger)
		owned.janitor.Start(context.Background())
	}

	logger.Info("rate limit store ready", zap.String("backend", opts.StoreType))

	return owned, nil
}
