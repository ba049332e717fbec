package store

import (
	"context"

	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.uber.org/zap"
)

// Log is an audit.Store that only logs events.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a new logging audit store.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SaveEvent(_ context.Context, event *ratelimit.Event) error {
	l.logger.Info("rate limit event received",
		zap.String("id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("key", event.Key),
		zap.String("method", event.Method),
		zap.String("url", event.URL),
		zap.Int64("requests", event.Requests),
		zap.Int64("max", event.Max),
		zap.Int64("retryAfter", event.RetryAfter),
		zap.Time("at", event.At),
	)

	return nil
}
