package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher pushes raw watermill messages onto a topic. Services go through
// publisher.EventPublisher instead, which wraps payloads in the domain
// event envelope.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Close() error
}

// Subscriber consumes messages from a topic
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// PubSub is a transport usable for both ends, e.g. the in-process gochannel
type PubSub interface {
	Publisher
	Subscriber
}
