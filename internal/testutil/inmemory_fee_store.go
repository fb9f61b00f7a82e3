package testutil

import (
	"context"
	"sync"

	"github.com/campusledger/campusledger/internal/domain/fee"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// InMemoryFeeStructureStore implements fee.StructureRepository
type InMemoryFeeStructureStore struct {
	*InMemoryStore[*fee.Structure]
	mu sync.Mutex
}

// NewInMemoryFeeStructureStore creates a new in-memory fee structure repository
func NewInMemoryFeeStructureStore() *InMemoryFeeStructureStore {
	return &InMemoryFeeStructureStore{
		InMemoryStore: NewInMemoryStore[*fee.Structure](),
	}
}

// Create enforces the same scope uniqueness as the partial unique index in
// postgres, so racing creates lose here the way they would against the
// database.
func (m *InMemoryFeeStructureStore) Create(ctx context.Context, s *fee.Structure) error {
	if s == nil || s.ID == "" {
		return ierr.NewError("fee structure ID cannot be empty").
			WithHint("Fee structure ID cannot be empty").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	exists, err := m.ExistsForScope(ctx, s.AcademicSessionID, s.FeeType, s.ClassID)
	if err != nil {
		return err
	}
	if exists {
		return ierr.NewError("fee structure already exists").
			WithHint("A fee structure already exists for this session, fee type and class").
			Mark(ierr.ErrAlreadyExists)
	}

	if err := m.InMemoryStore.Create(ctx, s.ID, s); err != nil {
		return ierr.WithError(err).
			WithHint("Fee structure already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryFeeStructureStore) Get(ctx context.Context, id string) (*fee.Structure, error) {
	s, err := m.InMemoryStore.Get(ctx, id)
	if err != nil || s.Status == types.StatusDeleted {
		return nil, ierr.NewError("fee structure not found").
			WithHintf("Fee structure with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return s, nil
}

func (m *InMemoryFeeStructureStore) Update(ctx context.Context, s *fee.Structure) error {
	if err := m.InMemoryStore.Update(ctx, s.ID, s); err != nil {
		return ierr.WithError(err).
			WithHint("Fee structure not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (m *InMemoryFeeStructureStore) Delete(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Status = types.StatusDeleted
	return m.InMemoryStore.Update(ctx, id, s)
}

func feeStructureFilterFn(ctx context.Context, s *fee.Structure, filter interface{}) bool {
	f, ok := filter.(*types.FeeStructureFilter)
	if !ok {
		return true
	}
	if s.TenantID != types.GetTenantID(ctx) {
		return false
	}
	if s.Status != f.GetStatus() {
		return false
	}
	if f.AcademicSessionID != nil && s.AcademicSessionID != *f.AcademicSessionID {
		return false
	}
	if f.FeeType != nil && s.FeeType != *f.FeeType {
		return false
	}
	if f.ClassID != nil && s.ClassID != nil && *s.ClassID != *f.ClassID {
		return false
	}
	if f.BillingCycle != nil && s.BillingCycle.String() != *f.BillingCycle {
		return false
	}
	return true
}

func feeStructureSortFn(i, j *fee.Structure) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func (m *InMemoryFeeStructureStore) List(ctx context.Context, filter *types.FeeStructureFilter) ([]*fee.Structure, error) {
	return m.InMemoryStore.List(ctx, filter, feeStructureFilterFn, feeStructureSortFn)
}

func (m *InMemoryFeeStructureStore) Count(ctx context.Context, filter *types.FeeStructureFilter) (int, error) {
	return m.InMemoryStore.Count(ctx, filter, feeStructureFilterFn)
}

func (m *InMemoryFeeStructureStore) ExistsForScope(ctx context.Context, sessionID string, feeType types.FeeType, classID *string) (bool, error) {
	all, err := m.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return false, err
	}
	for _, s := range all {
		if s.Status == types.StatusDeleted || s.TenantID != types.GetTenantID(ctx) {
			continue
		}
		if s.AcademicSessionID != sessionID || s.FeeType != feeType {
			continue
		}
		if (s.ClassID == nil) != (classID == nil) {
			continue
		}
		if s.ClassID != nil && *s.ClassID != *classID {
			continue
		}
		return true, nil
	}
	return false, nil
}

// InMemoryDiscountStore implements fee.DiscountRepository
type InMemoryDiscountStore struct {
	*InMemoryStore[*fee.Discount]
}

// NewInMemoryDiscountStore creates a new in-memory discount repository
func NewInMemoryDiscountStore() *InMemoryDiscountStore {
	return &InMemoryDiscountStore{
		InMemoryStore: NewInMemoryStore[*fee.Discount](),
	}
}

func (m *InMemoryDiscountStore) Create(ctx context.Context, d *fee.Discount) error {
	if d == nil || d.ID == "" {
		return ierr.NewError("discount ID cannot be empty").
			WithHint("Discount ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if err := m.InMemoryStore.Create(ctx, d.ID, d); err != nil {
		return ierr.WithError(err).
			WithHint("Discount already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (m *InMemoryDiscountStore) Get(ctx context.Context, id string) (*fee.Discount, error) {
	d, err := m.InMemoryStore.Get(ctx, id)
	if err != nil || d.Status == types.StatusDeleted {
		return nil, ierr.NewError("discount not found").
			WithHintf("Discount with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return d, nil
}

func (m *InMemoryDiscountStore) Update(ctx context.Context, d *fee.Discount) error {
	if err := m.InMemoryStore.Update(ctx, d.ID, d); err != nil {
		return ierr.WithError(err).
			WithHint("Discount not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (m *InMemoryDiscountStore) Delete(ctx context.Context, id string) error {
	d, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	d.Status = types.StatusDeleted
	return m.InMemoryStore.Update(ctx, id, d)
}

func (m *InMemoryDiscountStore) List(ctx context.Context, filter *types.DiscountFilter) ([]*fee.Discount, error) {
	return m.InMemoryStore.List(ctx, filter, func(ctx context.Context, d *fee.Discount, f interface{}) bool {
		df, ok := f.(*types.DiscountFilter)
		if !ok {
			return true
		}
		if d.TenantID != types.GetTenantID(ctx) || d.Status != df.GetStatus() {
			return false
		}
		if df.Category != nil && d.Category != *df.Category {
			return false
		}
		if df.ActiveOnly && !d.IsActive {
			return false
		}
		return true
	}, func(i, j *fee.Discount) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}
