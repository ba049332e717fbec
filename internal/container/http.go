package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-go/internal/handlers"
	"github.com/serroba/ratelimit-go/internal/health"
	"github.com/serroba/ratelimit-go/internal/metrics"
	"github.com/serroba/ratelimit-go/internal/middleware"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
//
// /metrics and /health are served without limiting; /plain/ping goes through
// the net/http limiter and the huma operations through the huma one. Both
// share the same orchestrator, hence the same quota per client.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimw.Recoverer)

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		orchestrator, err := do.Invoke[*ratelimit.Orchestrator](i)
		if err != nil {
			return nil, err
		}

		healthHandler, err := do.Invoke[*health.Handler](i)
		if err != nil {
			return nil, err
		}

		router.Handle("/metrics", do.MustInvoke[*metrics.Recorder](i).Handler())
		router.With(middleware.Handler(orchestrator, logger)).Get("/plain/ping", handlers.PlainPing)

		api := humachi.New(router, huma.DefaultConfig("Rate Limiter", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api, opts.APIKeyHeader, opts.TierHeader),
			middleware.RateLimiter(api, orchestrator, logger),
		)

		handlers.RegisterRoutes(api, handlers.NewDemoHandler(do.MustInvoke[ratelimit.Store](i), logger))
		health.RegisterRoutes(api, healthHandler)

		return api, nil
	})
}
