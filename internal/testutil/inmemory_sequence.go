package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/campusledger/campusledger/internal/domain/sequence"
	"github.com/campusledger/campusledger/internal/types"
)

var _ sequence.Allocator = (*InMemorySequenceAllocator)(nil)

// InMemorySequenceAllocator implements sequence.Allocator with per-type
// counters guarded by a mutex
type InMemorySequenceAllocator struct {
	mu       sync.Mutex
	counters map[types.SequenceType]int64
}

// NewInMemorySequenceAllocator creates a new in-memory sequence allocator
func NewInMemorySequenceAllocator() *InMemorySequenceAllocator {
	return &InMemorySequenceAllocator{
		counters: make(map[types.SequenceType]int64),
	}
}

// Clear resets all counters
func (a *InMemorySequenceAllocator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters = make(map[types.SequenceType]int64)
}

func (a *InMemorySequenceAllocator) NextNumber(ctx context.Context, sequenceType types.SequenceType) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[sequenceType]++
	return fmt.Sprintf("%s-%06d", sequenceType.Prefix(), a.counters[sequenceType]), nil
}
