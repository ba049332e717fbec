package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-go/internal/handlers"
)

// RequestMeta is a middleware that adds client IP, user-agent, API key and
// quota tier to the request context. apiKeyHeader and tierHeader name the
// headers carrying them and may be empty.
func RequestMeta(_ huma.API, apiKeyHeader, tierHeader string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  clientIP(ctx.Header, ctx.RemoteAddr()),
			UserAgent: ctx.Header("User-Agent"),
		}

		if apiKeyHeader != "" {
			meta.APIKey = ctx.Header(apiKeyHeader)
		}

		if tierHeader != "" {
			meta.Tier = ctx.Header(tierHeader)
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}
