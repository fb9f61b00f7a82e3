package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/campusledger/campusledger/internal/domain/invoice"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository with the same version
// semantics as the postgres repository: Update succeeds only when the stored
// version matches and increments it on success.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	mu    sync.Mutex
	items map[string][]*invoice.Item
}

// NewInMemoryInvoiceStore creates a new in-memory invoice repository
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		items:         make(map[string][]*invoice.Item),
	}
}

// Clear resets all stored data
func (m *InMemoryInvoiceStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.items = make(map[string][]*invoice.Item)
}

func (m *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil || inv.ID == "" {
		return ierr.NewError("invoice ID cannot be empty").
			WithHint("Invoice ID cannot be empty").
			Mark(ierr.ErrValidation)
	}

	stored := *inv
	if err := m.InMemoryStore.Create(ctx, inv.ID, &stored); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range inv.Items {
		m.items[inv.ID] = append(m.items[inv.ID], item)
	}
	return nil
}

func (m *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	stored, err := m.InMemoryStore.Get(ctx, id)
	if err != nil || stored.Status == types.StatusDeleted {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	inv := *stored
	m.mu.Lock()
	inv.Items = append([]*invoice.Item(nil), m.items[id]...)
	m.mu.Unlock()
	return &inv, nil
}

// GetForUpdate returns the current snapshot; write protection comes from the
// version check in Update
func (m *InMemoryInvoiceStore) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return m.Get(ctx, id)
}

func (m *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.InMemoryStore.Get(ctx, inv.ID)
	if err != nil || stored.Status == types.StatusDeleted {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	if stored.Version != inv.Version {
		return ierr.NewError("invoice version conflict").
			WithHint("The invoice was modified concurrently, please retry").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	updated := *inv
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	updated.Items = nil
	if err := m.InMemoryStore.Update(ctx, inv.ID, &updated); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice not found").
			Mark(ierr.ErrNotFound)
	}
	inv.Version = updated.Version
	return nil
}

func (m *InMemoryInvoiceStore) AddItem(ctx context.Context, item *invoice.Item) error {
	if item == nil || item.InvoiceID == "" {
		return ierr.NewError("invoice item is invalid").
			WithHint("Invoice item must reference an invoice").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.InvoiceID] = append(m.items[item.InvoiceID], item)
	return nil
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok {
		return true
	}
	if inv.TenantID != types.GetTenantID(ctx) || inv.Status != f.GetStatus() {
		return false
	}
	if len(f.InvoiceIDs) > 0 {
		found := false
		for _, id := range f.InvoiceIDs {
			if id == inv.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.StudentID != nil && inv.StudentID != *f.StudentID {
		return false
	}
	if f.AcademicSessionID != nil && inv.AcademicSessionID != *f.AcademicSessionID {
		return false
	}
	if f.InvoiceStatus != nil && inv.InvoiceStatus != *f.InvoiceStatus {
		return false
	}
	if f.OverdueOnly && !inv.IsOverdue(time.Now().UTC()) {
		return false
	}
	return true
}

func (m *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := m.InMemoryStore.List(ctx, filter, invoiceFilterFn, func(i, j *invoice.Invoice) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*invoice.Invoice, 0, len(invoices))
	for _, stored := range invoices {
		inv := *stored
		inv.Items = append([]*invoice.Item(nil), m.items[inv.ID]...)
		result = append(result, &inv)
	}
	return result, nil
}

func (m *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return m.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (m *InMemoryInvoiceStore) GetByInvoiceNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	all, err := m.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, stored := range all {
		if stored.InvoiceNumber == number && stored.Status != types.StatusDeleted {
			return m.Get(ctx, stored.ID)
		}
	}
	return nil, ierr.NewError("invoice not found").
		WithHintf("Invoice with number %s was not found", number).
		Mark(ierr.ErrNotFound)
}
