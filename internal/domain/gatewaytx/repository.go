package gatewaytx

import (
	"context"
)

// Repository defines the interface for gateway transaction persistence
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
}

// WebhookEventRepository defines the interface for the webhook audit log
type WebhookEventRepository interface {
	Create(ctx context.Context, event *WebhookEvent) error
	Get(ctx context.Context, id string) (*WebhookEvent, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*WebhookEvent, error)
	Update(ctx context.Context, event *WebhookEvent) error

	// ListUnprocessed returns stored events whose processing failed, kept
	// for manual replay
	ListUnprocessed(ctx context.Context) ([]*WebhookEvent, error)
}
