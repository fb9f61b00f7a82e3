package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/campusledger/campusledger/internal/domain/payment"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// InMemoryPaymentStore implements payment.Repository. TransitionStatus is
// atomic under the store mutex, matching the conditional UPDATE in the
// postgres repository.
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
	mu sync.Mutex
}

// NewInMemoryPaymentStore creates a new in-memory payment repository
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func (m *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil || p.ID == "" {
		return ierr.NewError("payment ID cannot be empty").
			WithHint("Payment ID cannot be empty").
			Mark(ierr.ErrValidation)
	}

	stored := *p
	if err := m.InMemoryStore.Create(ctx, p.ID, &stored); err != nil {
		return ierr.WithError(err).
			WithHint("Payment already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	stored, err := m.InMemoryStore.Get(ctx, id)
	if err != nil || stored.Status == types.StatusDeleted {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	p := *stored
	return &p, nil
}

func (m *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.InMemoryStore.Get(ctx, p.ID)
	if err != nil {
		return ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", p.ID).
			Mark(ierr.ErrNotFound)
	}

	updated := *p
	// the status is owned by TransitionStatus once the payment leaves
	// pending; a stale in-flight copy must not overwrite it backwards
	if stored.PaymentStatus != types.PaymentStatusPending && updated.PaymentStatus == types.PaymentStatusPending {
		updated.PaymentStatus = stored.PaymentStatus
	}
	updated.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, p.ID, &updated)
}

func paymentFilterFn(ctx context.Context, p *payment.Payment, filter interface{}) bool {
	f, ok := filter.(*types.PaymentFilter)
	if !ok {
		return true
	}
	if p.TenantID != types.GetTenantID(ctx) || p.Status != f.GetStatus() {
		return false
	}
	if len(f.PaymentIDs) > 0 {
		found := false
		for _, id := range f.PaymentIDs {
			if id == p.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.InvoiceID != nil && p.InvoiceID != *f.InvoiceID {
		return false
	}
	if f.StudentID != nil && p.StudentID != *f.StudentID {
		return false
	}
	if f.PaymentMethod != nil && p.PaymentMethod != *f.PaymentMethod {
		return false
	}
	if f.PaymentStatus != nil && p.PaymentStatus != *f.PaymentStatus {
		return false
	}
	return true
}

func (m *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	payments, err := m.InMemoryStore.List(ctx, filter, paymentFilterFn, func(i, j *payment.Payment) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	result := make([]*payment.Payment, 0, len(payments))
	for _, stored := range payments {
		p := *stored
		result = append(result, &p)
	}
	return result, nil
}

func (m *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	return m.InMemoryStore.Count(ctx, filter, paymentFilterFn)
}

// TransitionStatus atomically flips the stored status when it matches the
// expected one, reporting whether this call won the transition
func (m *InMemoryPaymentStore) TransitionStatus(ctx context.Context, id string, from, to types.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.InMemoryStore.Get(ctx, id)
	if err != nil || stored.Status == types.StatusDeleted {
		return false, ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	if stored.PaymentStatus != from {
		return false, nil
	}

	updated := *stored
	updated.PaymentStatus = to
	updated.UpdatedAt = time.Now().UTC()
	if err := m.InMemoryStore.Update(ctx, id, &updated); err != nil {
		return false, err
	}
	return true, nil
}
