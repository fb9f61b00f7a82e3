package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	ierr "github.com/campusledger/campusledger/internal/errors"
)

// InMemoryGatewayTxStore implements gatewaytx.Repository
type InMemoryGatewayTxStore struct {
	*InMemoryStore[*gatewaytx.Transaction]
	mu          sync.Mutex
	byReference map[string]string
}

// NewInMemoryGatewayTxStore creates a new in-memory gateway transaction repository
func NewInMemoryGatewayTxStore() *InMemoryGatewayTxStore {
	return &InMemoryGatewayTxStore{
		InMemoryStore: NewInMemoryStore[*gatewaytx.Transaction](),
		byReference:   make(map[string]string),
	}
}

// Clear resets all stored data
func (m *InMemoryGatewayTxStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.byReference = make(map[string]string)
}

func (m *InMemoryGatewayTxStore) Create(ctx context.Context, txn *gatewaytx.Transaction) error {
	if txn == nil || txn.ID == "" {
		return ierr.NewError("gateway transaction ID cannot be empty").
			WithHint("Gateway transaction ID cannot be empty").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byReference[txn.Reference]; exists {
		return ierr.NewError("gateway transaction already exists").
			WithHintf("A transaction with reference %s already exists", txn.Reference).
			Mark(ierr.ErrAlreadyExists)
	}

	stored := *txn
	if err := m.InMemoryStore.Create(ctx, txn.ID, &stored); err != nil {
		return ierr.WithError(err).
			WithHint("Gateway transaction already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	m.byReference[txn.Reference] = txn.ID
	return nil
}

func (m *InMemoryGatewayTxStore) Get(ctx context.Context, id string) (*gatewaytx.Transaction, error) {
	stored, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("gateway transaction not found").
			WithHintf("Gateway transaction with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	txn := *stored
	return &txn, nil
}

func (m *InMemoryGatewayTxStore) GetByReference(ctx context.Context, reference string) (*gatewaytx.Transaction, error) {
	m.mu.Lock()
	id, ok := m.byReference[reference]
	m.mu.Unlock()
	if !ok {
		return nil, ierr.NewError("unknown gateway reference").
			WithHintf("No transaction found for reference %s", reference).
			Mark(ierr.ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *InMemoryGatewayTxStore) Update(ctx context.Context, txn *gatewaytx.Transaction) error {
	updated := *txn
	updated.UpdatedAt = time.Now().UTC()
	if err := m.InMemoryStore.Update(ctx, txn.ID, &updated); err != nil {
		return ierr.WithError(err).
			WithHint("Gateway transaction not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// InMemoryWebhookEventStore implements gatewaytx.WebhookEventRepository
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*gatewaytx.WebhookEvent]
	mu    sync.Mutex
	byKey map[string]string
}

// NewInMemoryWebhookEventStore creates a new in-memory webhook event repository
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		InMemoryStore: NewInMemoryStore[*gatewaytx.WebhookEvent](),
		byKey:         make(map[string]string),
	}
}

// Clear resets all stored data
func (m *InMemoryWebhookEventStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.byKey = make(map[string]string)
}

func (m *InMemoryWebhookEventStore) Create(ctx context.Context, e *gatewaytx.WebhookEvent) error {
	if e == nil || e.ID == "" {
		return ierr.NewError("webhook event ID cannot be empty").
			WithHint("Webhook event ID cannot be empty").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[e.IdempotencyKey]; exists {
		return ierr.NewError("webhook event already exists").
			WithHint("A delivery with this idempotency key was already stored").
			Mark(ierr.ErrAlreadyExists)
	}

	stored := *e
	if err := m.InMemoryStore.Create(ctx, e.ID, &stored); err != nil {
		return ierr.WithError(err).
			WithHint("Webhook event already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	m.byKey[e.IdempotencyKey] = e.ID
	return nil
}

func (m *InMemoryWebhookEventStore) Get(ctx context.Context, id string) (*gatewaytx.WebhookEvent, error) {
	stored, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("webhook event not found").
			WithHintf("Webhook event with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	e := *stored
	return &e, nil
}

func (m *InMemoryWebhookEventStore) GetByIdempotencyKey(ctx context.Context, key string) (*gatewaytx.WebhookEvent, error) {
	m.mu.Lock()
	id, ok := m.byKey[key]
	m.mu.Unlock()
	if !ok {
		return nil, ierr.NewError("webhook event not found").
			WithHint("No delivery stored under this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *InMemoryWebhookEventStore) Update(ctx context.Context, e *gatewaytx.WebhookEvent) error {
	updated := *e
	updated.UpdatedAt = time.Now().UTC()
	if err := m.InMemoryStore.Update(ctx, e.ID, &updated); err != nil {
		return ierr.WithError(err).
			WithHint("Webhook event not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (m *InMemoryWebhookEventStore) ListUnprocessed(ctx context.Context) ([]*gatewaytx.WebhookEvent, error) {
	return m.InMemoryStore.List(ctx, nil, func(ctx context.Context, e *gatewaytx.WebhookEvent, _ interface{}) bool {
		return !e.Processed
	}, func(i, j *gatewaytx.WebhookEvent) bool {
		return i.ReceivedAt.Before(j.ReceivedAt)
	})
}
