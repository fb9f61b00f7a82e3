package fee

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
)

// StructureRepository defines the interface for fee structure persistence
type StructureRepository interface {
	Create(ctx context.Context, structure *Structure) error
	Get(ctx context.Context, id string) (*Structure, error)
	Update(ctx context.Context, structure *Structure) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.FeeStructureFilter) ([]*Structure, error)
	Count(ctx context.Context, filter *types.FeeStructureFilter) (int, error)

	// ExistsForScope reports whether a structure already exists for the
	// (session, fee type, class scope) uniqueness key
	ExistsForScope(ctx context.Context, sessionID string, feeType types.FeeType, classID *string) (bool, error)
}

// DiscountRepository defines the interface for fee discount persistence
type DiscountRepository interface {
	Create(ctx context.Context, discount *Discount) error
	Get(ctx context.Context, id string) (*Discount, error)
	Update(ctx context.Context, discount *Discount) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.DiscountFilter) ([]*Discount, error)
}
