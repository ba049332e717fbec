package middleware

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.uber.org/zap"
)

// httpRequest adapts a net/http request and response to the orchestrator.
type httpRequest struct {
	r *http.Request
	w http.ResponseWriter
}

func (h httpRequest) Method() string            { return h.r.Method }
func (h httpRequest) URL() string               { return h.r.URL.RequestURI() }
func (h httpRequest) Header(name string) string { return h.r.Header.Get(name) }

func (h httpRequest) IP() string {
	return clientIP(h.r.Header.Get, h.r.RemoteAddr)
}

// SetHeader keeps the name exactly as given, so the lowercase draft-7
// names go out unchanged.
func (h httpRequest) SetHeader(name, value string) {
	h.w.Header()[name] = []string{value}
}

// Handler returns a net/http middleware, usable with chi routers, that runs
// every request through the orchestrator. The final status is observed with
// chi's WrapResponseWriter once the next handler returns.
func Handler(orchestrator *ratelimit.Orchestrator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := httpRequest{r: r, w: w}

			outcome, err := orchestrator.Process(r.Context(), req, req)
			if err != nil {
				logger.Error("rate limit check failed", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

				return
			}

			if outcome.Rejected() {
				writeRejection(w, outcome.Rejection, logger)

				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if err := orchestrator.Complete(r.Context(), outcome, statusOrOK(ww.Status())); err != nil {
				logger.Error("failed to compensate failed request",
					zap.String("key", outcome.Key),
					zap.Error(err),
				)
			}
		})
	}
}

func writeRejection(w http.ResponseWriter, rej *ratelimit.Rejection, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rej.Status)

	if err := json.NewEncoder(w).Encode(rej.Body); err != nil {
		logger.Error("failed to write rate limit rejection", zap.Error(err))
	}
}
