package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusledger/campusledger/internal/domain/fee"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type feeStructureRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewFeeStructureRepository creates a postgres-backed fee structure repository
func NewFeeStructureRepository(db postgres.IClient, log *logger.Logger) fee.StructureRepository {
	return &feeStructureRepository{db: db, logger: log}
}

const feeStructureColumns = `id, name, code, fee_type, academic_session_id, class_id, amount,
	billing_cycle, due_day, is_optional, description, tax_rate, late_fee_per_day,
	max_late_fee, discount_eligible,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *feeStructureRepository) Create(ctx context.Context, s *fee.Structure) error {
	r.logger.Debugw("creating fee structure", "fee_structure_id", s.ID, "code", s.Code)

	query := fmt.Sprintf(`INSERT INTO fee_structures (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		feeStructureColumns)

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		s.ID, s.Name, s.Code, s.FeeType, s.AcademicSessionID, s.ClassID, s.Amount,
		s.BillingCycle, s.DueDay, s.IsOptional, s.Description, s.TaxRate, s.LateFeePerDay,
		s.MaxLateFee, s.DiscountEligible,
		s.TenantID, s.Status, s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy,
	)
	return wrapErr(err, "Fee structure")
}

func (r *feeStructureRepository) Get(ctx context.Context, id string) (*fee.Structure, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_structures
		WHERE id = $1 AND tenant_id = $2 AND status != $3`, feeStructureColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	s, err := scanFeeStructure(row)
	if err != nil {
		return nil, wrapErr(err, "Fee structure")
	}
	return s, nil
}

func (r *feeStructureRepository) Update(ctx context.Context, s *fee.Structure) error {
	query := `UPDATE fee_structures SET
		name = $3, code = $4, amount = $5, due_day = $6, is_optional = $7,
		description = $8, tax_rate = $9, late_fee_per_day = $10, max_late_fee = $11,
		discount_eligible = $12, status = $13, updated_at = $14, updated_by = $15
		WHERE id = $1 AND tenant_id = $2 AND status != $16`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		s.ID, types.GetTenantID(ctx),
		s.Name, s.Code, s.Amount, s.DueDay, s.IsOptional,
		s.Description, s.TaxRate, s.LateFeePerDay, s.MaxLateFee,
		s.DiscountEligible, s.Status, s.UpdatedAt, s.UpdatedBy,
		types.StatusDeleted,
	)
	if err != nil {
		return wrapErr(err, "Fee structure")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Fee structure")
	}
	return nil
}

func (r *feeStructureRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE fee_structures SET status = $3, updated_at = now(), updated_by = $4
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		id, types.GetTenantID(ctx), types.StatusDeleted, types.GetUserID(ctx))
	if err != nil {
		return wrapErr(err, "Fee structure")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Fee structure")
	}
	return nil
}

func (r *feeStructureRepository) List(ctx context.Context, filter *types.FeeStructureFilter) ([]*fee.Structure, error) {
	query, args := r.buildListQuery(ctx, fmt.Sprintf("SELECT %s FROM fee_structures", feeStructureColumns), filter, true)

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "Fee structure")
	}
	defer rows.Close()

	var structures []*fee.Structure
	for rows.Next() {
		s, err := scanFeeStructure(rows)
		if err != nil {
			return nil, wrapErr(err, "Fee structure")
		}
		structures = append(structures, s)
	}
	return structures, wrapErr(rows.Err(), "Fee structure")
}

func (r *feeStructureRepository) Count(ctx context.Context, filter *types.FeeStructureFilter) (int, error) {
	query, args := r.buildListQuery(ctx, "SELECT COUNT(*) FROM fee_structures", filter, false)

	var count int
	if err := r.db.Querier(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapErr(err, "Fee structure")
	}
	return count, nil
}

func (r *feeStructureRepository) ExistsForScope(ctx context.Context, sessionID string, feeType types.FeeType, classID *string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM fee_structures
		WHERE tenant_id = $1 AND academic_session_id = $2 AND fee_type = $3
		AND class_id IS NOT DISTINCT FROM $4 AND status != $5)`

	var exists bool
	err := r.db.Querier(ctx).QueryRow(ctx, query,
		types.GetTenantID(ctx), sessionID, feeType, classID, types.StatusDeleted,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "Fee structure")
	}
	return exists, nil
}

func (r *feeStructureRepository) buildListQuery(ctx context.Context, base string, filter *types.FeeStructureFilter, paginate bool) (string, []any) {
	var sb strings.Builder
	sb.WriteString(base)

	args := []any{types.GetTenantID(ctx), filter.GetStatus()}
	sb.WriteString(" WHERE tenant_id = $1 AND status = $2")

	if filter != nil {
		if filter.AcademicSessionID != nil {
			args = append(args, *filter.AcademicSessionID)
			fmt.Fprintf(&sb, " AND academic_session_id = $%d", len(args))
		}
		if filter.FeeType != nil {
			args = append(args, *filter.FeeType)
			fmt.Fprintf(&sb, " AND fee_type = $%d", len(args))
		}
		if filter.ClassID != nil {
			args = append(args, *filter.ClassID)
			fmt.Fprintf(&sb, " AND (class_id = $%d OR class_id IS NULL)", len(args))
		}
		if filter.BillingCycle != nil {
			args = append(args, *filter.BillingCycle)
			fmt.Fprintf(&sb, " AND billing_cycle = $%d", len(args))
		}
	}

	if paginate {
		fmt.Fprintf(&sb, " ORDER BY %s %s", sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))
		if !filter.IsUnlimited() {
			args = append(args, filter.GetLimit())
			fmt.Fprintf(&sb, " LIMIT $%d", len(args))
			args = append(args, filter.GetOffset())
			fmt.Fprintf(&sb, " OFFSET $%d", len(args))
		}
	}
	return sb.String(), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeeStructure(row rowScanner) (*fee.Structure, error) {
	var s fee.Structure
	err := row.Scan(
		&s.ID, &s.Name, &s.Code, &s.FeeType, &s.AcademicSessionID, &s.ClassID, &s.Amount,
		&s.BillingCycle, &s.DueDay, &s.IsOptional, &s.Description, &s.TaxRate, &s.LateFeePerDay,
		&s.MaxLateFee, &s.DiscountEligible,
		&s.TenantID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
