package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusledger/campusledger/internal/domain/fee"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type discountRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewDiscountRepository creates a postgres-backed discount repository
func NewDiscountRepository(db postgres.IClient, log *logger.Logger) fee.DiscountRepository {
	return &discountRepository{db: db, logger: log}
}

const discountColumns = `id, name, code, discount_type, category, value, max_discount_amount,
	applicable_fee_ids, start_date, end_date, is_active, description,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *discountRepository) Create(ctx context.Context, d *fee.Discount) error {
	r.logger.Debugw("creating discount", "discount_id", d.ID, "code", d.Code)

	query := fmt.Sprintf(`INSERT INTO fee_discounts (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		discountColumns)

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		d.ID, d.Name, d.Code, d.DiscountType, d.Category, d.Value, d.MaxDiscountAmount,
		d.ApplicableFeeIDs, d.StartDate, d.EndDate, d.IsActive, d.Description,
		d.TenantID, d.Status, d.CreatedAt, d.UpdatedAt, d.CreatedBy, d.UpdatedBy,
	)
	return wrapErr(err, "Discount")
}

func (r *discountRepository) Get(ctx context.Context, id string) (*fee.Discount, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_discounts
		WHERE id = $1 AND tenant_id = $2 AND status != $3`, discountColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	d, err := scanDiscount(row)
	if err != nil {
		return nil, wrapErr(err, "Discount")
	}
	return d, nil
}

func (r *discountRepository) Update(ctx context.Context, d *fee.Discount) error {
	query := `UPDATE fee_discounts SET
		name = $3, code = $4, value = $5, max_discount_amount = $6,
		applicable_fee_ids = $7, start_date = $8, end_date = $9, is_active = $10,
		description = $11, status = $12, updated_at = $13, updated_by = $14
		WHERE id = $1 AND tenant_id = $2 AND status != $15`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		d.ID, types.GetTenantID(ctx),
		d.Name, d.Code, d.Value, d.MaxDiscountAmount,
		d.ApplicableFeeIDs, d.StartDate, d.EndDate, d.IsActive,
		d.Description, d.Status, d.UpdatedAt, d.UpdatedBy,
		types.StatusDeleted,
	)
	if err != nil {
		return wrapErr(err, "Discount")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Discount")
	}
	return nil
}

func (r *discountRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE fee_discounts SET status = $3, updated_at = now(), updated_by = $4
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		id, types.GetTenantID(ctx), types.StatusDeleted, types.GetUserID(ctx))
	if err != nil {
		return wrapErr(err, "Discount")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Discount")
	}
	return nil
}

func (r *discountRepository) List(ctx context.Context, filter *types.DiscountFilter) ([]*fee.Discount, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM fee_discounts WHERE tenant_id = $1 AND status = $2", discountColumns)
	args := []any{types.GetTenantID(ctx), filter.GetStatus()}

	if filter != nil {
		if filter.Category != nil {
			args = append(args, *filter.Category)
			fmt.Fprintf(&sb, " AND category = $%d", len(args))
		}
		if filter.ActiveOnly {
			args = append(args, time.Now().UTC())
			fmt.Fprintf(&sb, " AND is_active AND start_date <= $%d AND end_date >= $%d", len(args), len(args))
		}
	}

	fmt.Fprintf(&sb, " ORDER BY %s %s", sanitizeSortColumn(filter.GetSort()), sanitizeSortOrder(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, filter.GetOffset())
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Querier(ctx).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapErr(err, "Discount")
	}
	defer rows.Close()

	var discounts []*fee.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, wrapErr(err, "Discount")
		}
		discounts = append(discounts, d)
	}
	return discounts, wrapErr(rows.Err(), "Discount")
}

func scanDiscount(row rowScanner) (*fee.Discount, error) {
	var d fee.Discount
	err := row.Scan(
		&d.ID, &d.Name, &d.Code, &d.DiscountType, &d.Category, &d.Value, &d.MaxDiscountAmount,
		&d.ApplicableFeeIDs, &d.StartDate, &d.EndDate, &d.IsActive, &d.Description,
		&d.TenantID, &d.Status, &d.CreatedAt, &d.UpdatedAt, &d.CreatedBy, &d.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
