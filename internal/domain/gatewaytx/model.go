package gatewaytx

import (
	"encoding/json"
	"time"

	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// Transaction links a local payment to a hosted-payment session at the
// provider, keyed by the provider reference. One transaction exists per
// reference; reprocessing a reference already in a matching terminal remote
// status is a no-op.
type Transaction struct {
	ID               string              `json:"id"`
	Reference        string              `json:"reference"`
	PaymentID        string              `json:"payment_id"`
	RemoteStatus     types.GatewayStatus `json:"remote_status"`
	AccessCode       *string             `json:"access_code,omitempty"`
	AuthorizationURL *string             `json:"authorization_url,omitempty"`
	CustomerEmail    string              `json:"customer_email"`
	RawPayload       json.RawMessage     `json:"raw_payload,omitempty"`
	LastSyncedAt     *time.Time          `json:"last_synced_at,omitempty"`

	types.BaseModel
}

// Validate validates the gateway transaction
func (t *Transaction) Validate() error {
	if t.Reference == "" {
		return ierr.NewError("invalid reference").
			WithHint("Gateway reference is required").
			Mark(ierr.ErrValidation)
	}
	if t.PaymentID == "" {
		return ierr.NewError("invalid payment id").
			WithHint("Payment is required").
			Mark(ierr.ErrValidation)
	}
	if err := t.RemoteStatus.Validate(); err != nil {
		return ierr.NewError("invalid remote status").
			WithHint("Remote status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// WebhookEvent is the audit and idempotency log for inbound provider
// deliveries. An event with a given idempotency key is processed at most
// once; replays return the stored record.
type WebhookEvent struct {
	ID             string          `json:"id"`
	EventType      string          `json:"event_type"`
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	ReceivedAt     time.Time       `json:"received_at"`
	Processed      bool            `json:"processed"`
	Outcome        *string         `json:"outcome,omitempty"`

	types.BaseModel
}

// Validate validates the webhook event
func (e *WebhookEvent) Validate() error {
	if e.EventType == "" {
		return ierr.NewError("invalid event type").
			WithHint("Event type is required").
			Mark(ierr.ErrValidation)
	}
	if e.IdempotencyKey == "" {
		return ierr.NewError("invalid idempotency key").
			WithHint("Idempotency key is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
