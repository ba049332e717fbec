package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.uber.org/zap"
)

// DemoHandler serves the endpoints that sit behind the rate limiter.
type DemoHandler struct {
	store  ratelimit.Store
	clock  ratelimit.Clock
	logger *zap.Logger
}

// NewDemoHandler creates a new demo handler. store is the limiter's record store.
func NewDemoHandler(store ratelimit.Store, logger *zap.Logger) *DemoHandler {
	return &DemoHandler{store: store, clock: time.Now, logger: logger}
}

func (h *DemoHandler) Ping(_ context.Context, _ *struct{}) (*PingResponse, error) {
	resp := &PingResponse{}
	resp.Body.Message = "pong"

	return resp, nil
}

// Status answers with the requested code. Codes >= 400 are returned as
// errors, which makes them count as failed requests.
func (h *DemoHandler) Status(_ context.Context, req *StatusRequest) (*StatusResponse, error) {
	if req.Code >= http.StatusBadRequest {
		return nil, huma.NewError(req.Code, http.StatusText(req.Code))
	}

	resp := &StatusResponse{Status: req.Code}
	resp.Body.Code = req.Code

	return resp, nil
}

func (h *DemoHandler) Whoami(ctx context.Context, _ *struct{}) (*WhoamiResponse, error) {
	meta := RequestMetaFromContext(ctx)

	resp := &WhoamiResponse{}
	resp.Body.ClientIP = meta.ClientIP
	resp.Body.UserAgent = meta.UserAgent
	resp.Body.APIKey = meta.APIKey
	resp.Body.Tier = meta.Tier

	return resp, nil
}

// Record returns the stored rate record of a key.
func (h *DemoHandler) Record(ctx context.Context, req *RecordRequest) (*RecordResponse, error) {
	record, err := h.store.Get(ctx, req.Key)
	if err != nil {
		if errors.Is(err, ratelimit.ErrNotFound) {
			return nil, huma.Error404NotFound("no rate record for key")
		}

		h.logger.Error("failed to read rate record", zap.String("key", req.Key), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to read rate record")
	}

	resp := &RecordResponse{}
	resp.Body.Key = req.Key
	resp.Body.Requests = record.Requests
	resp.Body.Expires = record.Expires
	resp.Body.Stale = record.Stale(h.clock().UnixMilli())

	return resp, nil
}
