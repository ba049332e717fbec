package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.uber.org/zap"
)

// humaRequest adapts a huma.Context to ratelimit.Request and ratelimit.ResponseSink.
type humaRequest struct {
	ctx huma.Context
}

func (r humaRequest) Method() string               { return r.ctx.Method() }
func (r humaRequest) Header(name string) string    { return r.ctx.Header(name) }
func (r humaRequest) SetHeader(name, value string) { r.ctx.SetHeader(name, value) }
func (r humaRequest) Operation() *huma.Operation   { return r.ctx.Operation() }

func (r humaRequest) IP() string {
	return clientIP(r.ctx.Header, r.ctx.RemoteAddr())
}

func (r humaRequest) URL() string {
	u := r.ctx.URL()

	return u.RequestURI()
}

func (r humaRequest) status() int {
	return statusOrOK(r.ctx.Status())
}

// writeRejection answers with the JSON rejection body. Headers must be set
// before the status, which flushes them.
func (r humaRequest) writeRejection(rej *ratelimit.Rejection) error {
	r.ctx.SetHeader("Content-Type", "application/json")
	r.ctx.SetStatus(rej.Status)

	return json.NewEncoder(r.ctx.BodyWriter()).Encode(rej.Body)
}

// RateLimiter returns a Huma middleware that runs every request through the orchestrator.
//
// Endpoints whose operation metadata carries a disabled ratelimit.EndpointConfig
// bypass limiting entirely. Admitted requests are completed with the status
// the handler wrote, which lets the orchestrator compensate failed requests.
func RateLimiter(
	api huma.API,
	orchestrator *ratelimit.Orchestrator,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if cfg := ratelimit.GetEndpointConfig(ctx.Operation()); cfg != nil && cfg.Disabled {
			logger.Debug("rate limiting disabled for endpoint",
				zap.String("path", getOperationPath(ctx)), zap.String("method", ctx.Method()))
			next(ctx)

			return
		}

		req := humaRequest{ctx: ctx}

		outcome, err := orchestrator.Process(ctx.Context(), req, req)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", getOperationPath(ctx)), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if outcome.Rejected() {
			if err := req.writeRejection(outcome.Rejection); err != nil {
				logger.Error("failed to write rate limit rejection", zap.Error(err))
			}

			return
		}

		next(ctx)

		if err := orchestrator.Complete(ctx.Context(), outcome, req.status()); err != nil {
			logger.Error("failed to compensate failed request",
				zap.String("key", outcome.Key),
				zap.Error(err),
			)
		}
	}
}

// getOperationPath extracts the path from the operation, if available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// statusOrOK treats an unset status as 200, which is what net/http sends.
func statusOrOK(status int) int {
	if status == 0 {
		return http.StatusOK
	}

	return status
}
