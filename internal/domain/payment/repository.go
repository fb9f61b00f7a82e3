package payment

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
)

// Repository defines the interface for payment persistence
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// TransitionStatus conditionally moves a payment from one status to
	// another. It returns false without error when the payment is not in the
	// expected status - the atomic guard behind exactly-once ledger
	// application.
	TransitionStatus(ctx context.Context, id string, from, to types.PaymentStatus) (bool, error)
}
