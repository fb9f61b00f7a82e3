package testutil

import (
	"context"
	"sync"

	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient satisfies postgres.IClient for tests backed by the
// in-memory stores. Transactions are serialized by a mutex since the stores
// cannot roll back; nested calls reuse the outer transaction like the real
// client does.
type MockPostgresClient struct {
	mu     sync.Mutex
	logger *logger.Logger
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{logger: logger}
}

// WithTx executes the given function holding the transaction mutex
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if inTx, ok := ctx.Value(types.CtxDBTransaction).(bool); ok && inTx {
		return fn(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(context.WithValue(ctx, types.CtxDBTransaction, true))
}

// Querier is never reached by the in-memory repositories
func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}

// Close is a no-op
func (c *MockPostgresClient) Close() {}
