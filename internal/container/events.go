package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/samber/do"
	"github.com/serroba/ratelimit-go/internal/audit"
	auditstore "github.com/serroba/ratelimit-go/internal/audit/store"
	"github.com/serroba/ratelimit-go/internal/messaging"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"go.uber.org/zap"
)

// AuditConsumerGroup is the redis stream consumer group of the audit consumer.
const AuditConsumerGroup = "ratelimit-audit"

// EventsPackage provides the publish function handed to the orchestrator.
//
// With the channel transport events stay in process and are consumed by a
// logging audit consumer group; with redis they go to a redis stream read by
// cmd/consumer. Without a transport events are discarded.
func EventsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch opts.Events {
		case EventsChannel:
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		case EventsRedis:
			publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
				Client:     do.MustInvoke[*Clients](i).Redis,
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			}, messaging.NewLoggerAdapter(logger))
			if err != nil {
				return nil, fmt.Errorf("create redis stream publisher: %w", err)
			}

			return messaging.NewPublisherGroup(publisher), nil
		default:
			return nil, fmt.Errorf("events transport %q has no publisher", opts.Events)
		}
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[ratelimit.Event], error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Events {
		case "", EventsNone:
			return messaging.Discard[ratelimit.Event](), nil
		case EventsChannel, EventsRedis:
			group, err := do.Invoke[*messaging.PublisherGroup](i)
			if err != nil {
				return nil, err
			}

			return audit.NewPublishFunc(group.Publisher()), nil
		default:
			return nil, ratelimit.NewConfigError("events", fmt.Errorf("unsupported transport %q", opts.Events))
		}
	})

	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{}, messaging.NewLoggerAdapter(logger)), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var (
			subscriber message.Subscriber
			store      audit.Store
		)

		switch opts.Events {
		case EventsChannel:
			subscriber = do.MustInvoke[*gochannel.GoChannel](i)
			store = auditstore.NewLog(logger)
		case EventsRedis:
			client := do.MustInvoke[*Clients](i).Redis

			sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        client,
				Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
				ConsumerGroup: AuditConsumerGroup,
			}, messaging.NewLoggerAdapter(logger))
			if err != nil {
				return nil, fmt.Errorf("create redis stream subscriber: %w", err)
			}

			subscriber = sub
			store = auditstore.NewRedis(client, auditstore.DefaultRecent)
		default:
			return nil, fmt.Errorf("events transport %q has no consumer", opts.Events)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, ratelimit.TopicEvents, audit.NewHandler(store), logger))

		return group, nil
	})
}
