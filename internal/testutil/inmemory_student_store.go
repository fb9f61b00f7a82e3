package testutil

import (
	"context"

	"github.com/campusledger/campusledger/internal/domain/student"
	ierr "github.com/campusledger/campusledger/internal/errors"
)

// InMemoryStudentStore implements student.Directory with a seedable map
type InMemoryStudentStore struct {
	*InMemoryStore[*student.Student]
}

// NewInMemoryStudentStore creates a new in-memory student directory
func NewInMemoryStudentStore() *InMemoryStudentStore {
	return &InMemoryStudentStore{
		InMemoryStore: NewInMemoryStore[*student.Student](),
	}
}

// Seed registers a student for lookup
func (m *InMemoryStudentStore) Seed(ctx context.Context, s *student.Student) error {
	return m.InMemoryStore.Create(ctx, s.ID, s)
}

func (m *InMemoryStudentStore) Get(ctx context.Context, id string) (*student.Student, error) {
	s, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("student not found").
			WithHintf("Student with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return s, nil
}
