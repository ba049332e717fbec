package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

// RegisterRoutes registers the demo routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, h *DemoHandler) {
	// GET /ping - limited by the configured policy
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Summary:     "Ping",
		Tags:        []string{"Demo"},
	}, h.Ping)

	// GET /status/{code} - answers with any status, used to exercise failed-request compensation
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status/{code}",
		Summary:     "Respond with a status code",
		Description: "Responds with the requested status. Codes >= 400 count as failed requests.",
		Tags:        []string{"Demo"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Quota: &ratelimit.Quota{Max: 5, Window: 60},
			},
		},
	}, h.Status)

	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Summary:     "Describe the caller",
		Description: "Reports the client IP, user agent, API key and tier the rate limiter sees.",
		Tags:        []string{"Demo"},
	}, h.Whoami)

	// GET /ratelimit/{key} - operational lookup, never limited itself
	huma.Register(api, huma.Operation{
		OperationID: "get-rate-record",
		Method:      http.MethodGet,
		Path:        "/ratelimit/{key}",
		Summary:     "Inspect a rate record",
		Tags:        []string{"Rate limit"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Record)
}
