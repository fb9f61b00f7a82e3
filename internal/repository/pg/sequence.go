package pg

import (
	"context"
	"fmt"

	"github.com/campusledger/campusledger/internal/domain/sequence"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type sequenceAllocator struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewSequenceAllocator creates a postgres-backed sequence allocator. The
// upsert-and-return makes each call claim a distinct value even under
// concurrent allocations.
func NewSequenceAllocator(db postgres.IClient, log *logger.Logger) sequence.Allocator {
	return &sequenceAllocator{db: db, logger: log}
}

func (a *sequenceAllocator) NextNumber(ctx context.Context, sequenceType types.SequenceType) (string, error) {
	query := `INSERT INTO billing_sequences (tenant_id, sequence_type, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, sequence_type)
		DO UPDATE SET last_value = billing_sequences.last_value + 1
		RETURNING last_value`

	var value int64
	err := a.db.Querier(ctx).QueryRow(ctx, query, types.GetTenantID(ctx), sequenceType).Scan(&value)
	if err != nil {
		return "", wrapErr(err, "Sequence")
	}
	return fmt.Sprintf("%s-%06d", sequenceType.Prefix(), value), nil
}
