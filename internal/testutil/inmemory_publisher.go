package testutil

import (
	"context"
	"sync"

	"github.com/campusledger/campusledger/internal/publisher"
	"github.com/campusledger/campusledger/internal/types"
)

var _ publisher.EventPublisher = (*InMemoryEventPublisher)(nil)

// InMemoryEventPublisher collects published domain events for assertions
type InMemoryEventPublisher struct {
	mu     sync.Mutex
	events []*types.DomainEvent
}

// NewInMemoryEventPublisher creates a new in-memory event publisher
func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{}
}

// Publish records the event
func (p *InMemoryEventPublisher) Publish(ctx context.Context, event *types.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Close is a no-op
func (p *InMemoryEventPublisher) Close() error {
	return nil
}

// Events returns the published events so far
func (p *InMemoryEventPublisher) Events() []*types.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*types.DomainEvent(nil), p.events...)
}

// EventsByName returns the published events with the given name
func (p *InMemoryEventPublisher) EventsByName(name string) []*types.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*types.DomainEvent
	for _, e := range p.events {
		if e.EventName == name {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops all recorded events
func (p *InMemoryEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
