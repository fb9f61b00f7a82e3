package invoice

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create creates a new invoice together with its line items
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID including its line items
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetForUpdate retrieves an invoice under an exclusive lock. Callers must
	// be inside a transaction; the lock is held until the transaction ends.
	// Implementations without row locks return the current version and rely
	// on Update's version check instead.
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// Update updates an existing invoice. The write fails with a version
	// conflict when the stored version no longer matches invoice.Version;
	// on success the version is incremented.
	Update(ctx context.Context, invoice *Invoice) error

	// AddItem appends a line item to an invoice
	AddItem(ctx context.Context, item *Item) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// GetByInvoiceNumber retrieves an invoice by its human-readable number
	GetByInvoiceNumber(ctx context.Context, number string) (*Invoice, error)
}
