package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusledger/campusledger/internal/domain/payment"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type paymentRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewPaymentRepository creates a postgres-backed payment repository
func NewPaymentRepository(db postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: log}
}

const paymentColumns = `id, payment_number, invoice_id, student_id, amount, payment_method,
	payment_date, recorded_by, payment_status, gateway_reference, authorization_code,
	customer_email, metadata, error_message, completed_at, failed_at, refunded_at,
	receipt_issued, tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.Debugw("creating payment", "payment_id", p.ID, "invoice_id", p.InvoiceID)

	query := fmt.Sprintf(`INSERT INTO payments (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		paymentColumns)

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		p.ID, p.PaymentNumber, p.InvoiceID, p.StudentID, p.Amount, p.PaymentMethod,
		p.PaymentDate, p.RecordedBy, p.PaymentStatus, p.GatewayReference, p.AuthorizationCode,
		p.CustomerEmail, p.Metadata, p.ErrorMessage, p.CompletedAt, p.FailedAt, p.RefundedAt,
		p.ReceiptIssued, p.TenantID, p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	return wrapErr(err, "Payment")
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments
		WHERE id = $1 AND tenant_id = $2 AND status != $3`, paymentColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	p, err := scanPayment(row)
	if err != nil {
		return nil, wrapErr(err, "Payment")
	}
	return p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `UPDATE payments SET
		payment_status = $3, gateway_reference = $4, authorization_code = $5,
		metadata = $6, error_message = $7, completed_at = $8, failed_at = $9,
		refunded_at = $10, receipt_issued = $11, updated_at = $12, updated_by = $13
		WHERE id = $1 AND tenant_id = $2 AND status != $14`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		p.ID, types.GetTenantID(ctx),
		p.PaymentStatus, p.GatewayReference, p.AuthorizationCode,
		p.Metadata, p.ErrorMessage, p.CompletedAt, p.FailedAt,
		p.RefundedAt, p.ReceiptIssued, time.Now().UTC(), types.GetUserID(ctx),
		types.StatusDeleted,
	)
	if err != nil {
		return wrapErr(err, "Payment")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Payment")
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	query, args := r.buildListQuery(ctx, fmt.Sprintf("SELECT %s FROM payments", paymentColumns), filter, true)

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "Payment")
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrapErr(err, "Payment")
		}
		payments = append(payments, p)
	}
	return payments, wrapErr(rows.Err(), "Payment")
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	query, args := r.buildListQuery(ctx, "SELECT COUNT(*) FROM payments", filter, false)

	var count int
	if err := r.db.Querier(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapErr(err, "Payment")
	}
	return count, nil
}

// TransitionStatus flips the status only when the stored status still matches
// the expected one. The row count tells the caller whether this invocation
// won the transition.
func (r *paymentRepository) TransitionStatus(ctx context.Context, id string, from, to types.PaymentStatus) (bool, error) {
	query := `UPDATE payments SET payment_status = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND tenant_id = $2 AND payment_status = $3 AND status != $7`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		id, types.GetTenantID(ctx), from, to, time.Now().UTC(), types.GetUserID(ctx),
		types.StatusDeleted,
	)
	if err != nil {
		return false, wrapErr(err, "Payment")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) buildListQuery(ctx context.Context, base string, filter *types.PaymentFilter, paginate bool) (string, []any) {
	var sb strings.Builder
	sb.WriteString(base)

	args := []any{types.GetTenantID(ctx), filter.GetStatus()}
	sb.WriteString(" WHERE tenant_id = $1 AND status = $2")

	if filter != nil {
		if len(filter.PaymentIDs) > 0 {
			args = append(args, filter.PaymentIDs)
			fmt.Fprintf(&sb, " AND id = ANY($%d)", len(args))
		}
		if filter.InvoiceID != nil {
			args = append(args, *filter.InvoiceID)
			fmt.Fprintf(&sb, " AND invoice_id = $%d", len(args))
		}
		if filter.StudentID != nil {
			args = append(args, *filter.StudentID)
			fmt.Fprintf(&sb, " AND student_id = $%d", len(args))
		}
		if filter.PaymentMethod != nil {
			args = append(args, *filter.PaymentMethod)
			fmt.Fprintf(&sb, " AND payment_method = $%d", len(args))
		}
		if filter.PaymentStatus != nil {
			args = append(args, *filter.PaymentStatus)
			fmt.Fprintf(&sb, " AND payment_status = $%d", len(args))
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

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.PaymentNumber, &p.InvoiceID, &p.StudentID, &p.Amount, &p.PaymentMethod,
		&p.PaymentDate, &p.RecordedBy, &p.PaymentStatus, &p.GatewayReference, &p.AuthorizationCode,
		&p.CustomerEmail, &p.Metadata, &p.ErrorMessage, &p.CompletedAt, &p.FailedAt, &p.RefundedAt,
		&p.ReceiptIssued, &p.TenantID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
