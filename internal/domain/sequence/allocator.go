package sequence

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
)

// Allocator produces globally unique, monotonically increasing
// human-readable numbers per sequence type, e.g. INV-000042. Implementations
// must remain unique under concurrent callers.
type Allocator interface {
	NextNumber(ctx context.Context, sequenceType types.SequenceType) (string, error)
}
