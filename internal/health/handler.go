package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Checker defines the interface for checking the rate limit store's reachability.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Ping calls f.
func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// NewRedisChecker checks a Redis client.
func NewRedisChecker(client redis.UniversalClient) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// NewMongoChecker checks a MongoDB client against its primary.
func NewMongoChecker(client *mongo.Client) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
}

// NewPostgresChecker checks a Postgres pool.
func NewPostgresChecker(pool *pgxpool.Pool) Checker {
	return CheckerFunc(pool.Ping)
}

// Handler handles health check operations.
type Handler struct {
	backend string
	store   Checker
}

// NewHandler creates a new health handler for the named store backend.
// A nil checker, as for the in-process memory store, is always healthy.
func NewHandler(backend string, store Checker) *Handler {
	return &Handler{backend: backend, store: store}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status  string `json:"status"`
		Backend string `json:"backend"`
		Store   string `json:"store"`
	}
}

// Check reports whether the rate limit store is reachable.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Backend = h.backend
	resp.Body.Store = "healthy"

	if h.store == nil {
		return resp, nil
	}

	if err := h.store.Ping(ctx); err != nil {
		resp.Body.Store = "unhealthy"
		resp.Body.Status = "degraded"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes. They are never rate limited.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
