package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/ratelimit-go/internal/messaging"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{msgChan: make(chan *message.Message, 10)}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func eventMessage(t *testing.T, event *ratelimit.Event) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

// awaitAck reports true for an ack and false for a nack.
func awaitAck(t *testing.T, msg *message.Message) bool {
	t.Helper()

	select {
	case <-msg.Acked():
		return true
	case <-msg.Nacked():
		return false
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")

		return false
	}
}

func startConsumer(
	t *testing.T,
	sub *mockSubscriber,
	handler messaging.Handler[ratelimit.Event],
	opts ...messaging.ConsumerOption[ratelimit.Event],
) {
	t.Helper()

	consumer := messaging.NewConsumer(sub, ratelimit.TopicEvents, handler, zap.NewNop(), opts...)
	require.NoError(t, consumer.Start(context.Background()))
	t.Cleanup(func() { _ = consumer.Shutdown() })
}

func TestConsumer_Start(t *testing.T) {
	t.Run("subscribes to its topic", func(t *testing.T) {
		consumer := messaging.NewConsumer(
			newMockSubscriber(),
			ratelimit.TopicEvents,
			func(context.Context, *ratelimit.Event) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, ratelimit.TopicEvents, consumer.Topic())
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("returns error when subscribe fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("stream unavailable")}
		consumer := messaging.NewConsumer(
			sub,
			ratelimit.TopicEvents,
			func(context.Context, *ratelimit.Event) error { return nil },
			zap.NewNop(),
		)

		assert.ErrorIs(t, consumer.Start(context.Background()), sub.subscribeErr)
	})

	t.Run("shutdown is a no-op before start", func(t *testing.T) {
		consumer := messaging.NewConsumer(
			newMockSubscriber(),
			ratelimit.TopicEvents,
			func(context.Context, *ratelimit.Event) error { return nil },
			zap.NewNop(),
		)

		assert.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload func(t *testing.T) *message.Message
		err     error
		wantAck bool
	}{
		{
			name: "acks handled events",
			payload: func(t *testing.T) *message.Message {
				return eventMessage(t, &ratelimit.Event{ID: "e1", Kind: ratelimit.EventRejected})
			},
			wantAck: true,
		},
		{
			name: "nacks undecodable payloads",
			payload: func(*testing.T) *message.Message {
				return message.NewMessage(uuid.NewString(), []byte("invalid json"))
			},
			wantAck: false,
		},
		{
			name: "nacks when the handler fails",
			payload: func(t *testing.T) *message.Message {
				return eventMessage(t, &ratelimit.Event{ID: "e2"})
			},
			err:     errors.New("audit store down"),
			wantAck: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newMockSubscriber()
			startConsumer(t, sub, func(context.Context, *ratelimit.Event) error { return tt.err })

			msg := tt.payload(t)
			sub.msgChan <- msg

			assert.Equal(t, tt.wantAck, awaitAck(t, msg))
		})
	}

	t.Run("decodes the event", func(t *testing.T) {
		sub := newMockSubscriber()
		received := make(chan *ratelimit.Event, 1)

		startConsumer(t, sub, func(_ context.Context, event *ratelimit.Event) error {
			received <- event

			return nil
		})

		sub.msgChan <- eventMessage(t, &ratelimit.Event{
			ID: "e3", Kind: ratelimit.EventCompensated, Key: "203.0.113.7", Status: 503,
		})

		event := <-received
		assert.Equal(t, ratelimit.EventCompensated, event.Kind)
		assert.Equal(t, "203.0.113.7", event.Key)
		assert.Equal(t, 503, event.Status)
	})
}

func TestConsumer_Filter(t *testing.T) {
	sub := newMockSubscriber()
	handled := make(chan *ratelimit.Event, 2)

	startConsumer(t, sub,
		func(_ context.Context, event *ratelimit.Event) error {
			handled <- event

			return nil
		},
		messaging.WithFilter[ratelimit.Event](messaging.MetadataEquals("kind", string(ratelimit.EventRejected))),
	)

	skipped := message.NewMessage(uuid.NewString(), []byte("not even json"))
	skipped.Metadata.Set("kind", string(ratelimit.EventCompensated))

	accepted := eventMessage(t, &ratelimit.Event{ID: "42"})
	accepted.Metadata.Set("kind", string(ratelimit.EventRejected))

	sub.msgChan <- skipped
	sub.msgChan <- accepted

	assert.True(t, awaitAck(t, skipped), "filtered messages are acked")
	assert.True(t, awaitAck(t, accepted))

	event := <-handled
	assert.Equal(t, "42", event.ID)
	assert.Empty(t, handled, "filtered message must not reach the handler")
}

func TestMetadataEquals(t *testing.T) {
	filter := messaging.MetadataEquals("kind", "rejected", "compensated")

	assert.True(t, filter(message.Metadata{"kind": "rejected"}))
	assert.True(t, filter(message.Metadata{"kind": "compensated"}))
	assert.False(t, filter(message.Metadata{"kind": "admitted"}))
	assert.False(t, filter(message.Metadata{}))
}
