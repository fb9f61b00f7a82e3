package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/campusledger/campusledger/internal/config"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/pubsub"
	"github.com/campusledger/campusledger/internal/types"
)

// EventPublisher interface for producing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *types.DomainEvent) error
	Close() error
}

type eventPublisher struct {
	pubSub pubsub.PubSub
	config *config.EventConfig
	logger *logger.Logger
}

// NewPublisher creates a publisher backed by the configured pubsub
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) (EventPublisher, error) {
	return &eventPublisher{
		pubSub: pubSub,
		config: &cfg.Event,
		logger: logger,
	}, nil
}

func (p *eventPublisher) Publish(ctx context.Context, event *types.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)

	p.logger.Debugw("publishing domain event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish domain event",
			"error", err,
			"event_id", event.ID,
			"event_name", event.EventName,
			"tenant_id", event.TenantID,
		)
		return err
	}

	return nil
}

// Close closes the publisher
func (p *eventPublisher) Close() error {
	return p.pubSub.Close()
}
