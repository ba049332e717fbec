// Package audit publishes rate limit events and records them on the consumer side.
package audit

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/ratelimit-go/internal/messaging"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
)

// Message metadata keys set on every published event.
const (
	MetadataKind = "kind"
	MetadataKey  = "key"
)

// Store defines the interface for persisting rate limit events.
type Store interface {
	SaveEvent(ctx context.Context, event *ratelimit.Event) error
}

// NewPublishFunc creates the publish function handed to the orchestrator.
func NewPublishFunc(publisher message.Publisher) messaging.Publish[ratelimit.Event] {
	return messaging.NewPublishFunc(publisher, ratelimit.TopicEvents, func(e *ratelimit.Event) map[string]string {
		return map[string]string{
			MetadataKind: string(e.Kind),
			MetadataKey:  e.Key,
		}
	})
}

// NewHandler returns a message handler that saves events to store.
func NewHandler(store Store) messaging.Handler[ratelimit.Event] {
	return func(ctx context.Context, event *ratelimit.Event) error {
		return store.SaveEvent(ctx, event)
	}
}
