package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campusledger/campusledger/internal/types"
)

// publishEvent emits a domain event after a committed state transition.
// Publishing is best effort; a failed publish never rolls back the ledger.
func (s ServiceParams) publishEvent(ctx context.Context, eventName string, payload any) {
	if s.EventPublisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.Logger.Errorw("failed to encode event payload", "event_name", eventName, "error", err)
		return
	}

	event := &types.DomainEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOMAIN_EVENT),
		EventName: eventName,
		TenantID:  types.GetTenantID(ctx),
		UserID:    types.GetUserID(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}

	if err := s.EventPublisher.Publish(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish event", "event_name", eventName, "error", err)
	}
}
