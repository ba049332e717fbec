package messaging

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publish is a function that publishes a typed event.
type Publish[T any] func(event *T) error

// MetadataFunc derives message metadata from an event, so consumers can
// route or filter messages without decoding the payload.
type MetadataFunc[T any] func(event *T) map[string]string

// NewPublishFunc creates a typed publish function for a specific topic.
// metadata may be nil.
func NewPublishFunc[T any](publisher message.Publisher, topic string, metadata MetadataFunc[T]) Publish[T] {
	return func(event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)

		if metadata != nil {
			for k, v := range metadata(event) {
				msg.Metadata.Set(k, v)
			}
		}

		return publisher.Publish(topic, msg)
	}
}

// Discard returns a publish function that drops every event, used when
// event publishing is turned off.
func Discard[T any]() Publish[T] {
	return func(*T) error { return nil }
}

// PublisherGroup manages the underlying publisher lifecycle.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publisher returns the underlying message publisher for creating typed publish functions.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
