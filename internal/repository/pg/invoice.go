package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusledger/campusledger/internal/domain/invoice"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewInvoiceRepository creates a postgres-backed invoice repository
func NewInvoiceRepository(db postgres.IClient, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: log}
}

const invoiceColumns = `id, invoice_number, student_id, academic_session_id, billing_period,
	issue_date, due_date, invoice_status, subtotal, total_discount, total_tax,
	total_amount, amount_paid, balance_due, late_fee, notes, version,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const invoiceItemColumns = `id, invoice_id, fee_structure_id, quantity, unit_price,
	tax_rate, discount_amount, line_total, description,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := fmt.Sprintf(`INSERT INTO invoices (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
			invoiceColumns)

		_, err := r.db.Querier(ctx).Exec(ctx, query,
			inv.ID, inv.InvoiceNumber, inv.StudentID, inv.AcademicSessionID, inv.BillingPeriod,
			inv.IssueDate, inv.DueDate, inv.InvoiceStatus, inv.Subtotal, inv.TotalDiscount, inv.TotalTax,
			inv.TotalAmount, inv.AmountPaid, inv.BalanceDue, inv.LateFee, inv.Notes, inv.Version,
			inv.TenantID, inv.Status, inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy,
		)
		if err != nil {
			return wrapErr(err, "Invoice")
		}

		for _, item := range inv.Items {
			if err := r.AddItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices
		WHERE id = $1 AND tenant_id = $2 AND status != $3`, invoiceColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, wrapErr(err, "Invoice")
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetForUpdate locks the invoice row for the remainder of the enclosing
// transaction so concurrent ledger writers serialize on it
func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices
		WHERE id = $1 AND tenant_id = $2 AND status != $3 FOR UPDATE`, invoiceColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, wrapErr(err, "Invoice")
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Update writes the invoice back guarded by its version. A zero row count
// with the row still present means a concurrent writer won; callers retry.
func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `UPDATE invoices SET
		invoice_number = $4, issue_date = $5, due_date = $6, invoice_status = $7,
		subtotal = $8, total_discount = $9, total_tax = $10, total_amount = $11,
		amount_paid = $12, balance_due = $13, late_fee = $14, notes = $15,
		version = version + 1, status = $16, updated_at = $17, updated_by = $18
		WHERE id = $1 AND tenant_id = $2 AND version = $3 AND status != $19`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		inv.ID, types.GetTenantID(ctx), inv.Version,
		inv.InvoiceNumber, inv.IssueDate, inv.DueDate, inv.InvoiceStatus,
		inv.Subtotal, inv.TotalDiscount, inv.TotalTax, inv.TotalAmount,
		inv.AmountPaid, inv.BalanceDue, inv.LateFee, inv.Notes,
		inv.Status, time.Now().UTC(), types.GetUserID(ctx),
		types.StatusDeleted,
	)
	if err != nil {
		return wrapErr(err, "Invoice")
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("invoice version conflict").
			WithHint("The invoice was modified concurrently, please retry").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}
	inv.Version++
	return nil
}

func (r *invoiceRepository) AddItem(ctx context.Context, item *invoice.Item) error {
	query := fmt.Sprintf(`INSERT INTO invoice_items (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		invoiceItemColumns)

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		item.ID, item.InvoiceID, item.FeeStructureID, item.Quantity, item.UnitPrice,
		item.TaxRate, item.DiscountAmount, item.LineTotal, item.Description,
		item.TenantID, item.Status, item.CreatedAt, item.UpdatedAt, item.CreatedBy, item.UpdatedBy,
	)
	return wrapErr(err, "Invoice item")
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query, args := r.buildListQuery(ctx, fmt.Sprintf("SELECT %s FROM invoices", invoiceColumns), filter, true)

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "Invoice")
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, wrapErr(err, "Invoice")
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "Invoice")
	}

	for _, inv := range invoices {
		if err := r.loadItems(ctx, inv); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query, args := r.buildListQuery(ctx, "SELECT COUNT(*) FROM invoices", filter, false)

	var count int
	if err := r.db.Querier(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapErr(err, "Invoice")
	}
	return count, nil
}

func (r *invoiceRepository) GetByInvoiceNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices
		WHERE invoice_number = $1 AND tenant_id = $2 AND status != $3`, invoiceColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, number, types.GetTenantID(ctx), types.StatusDeleted)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, wrapErr(err, "Invoice")
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) buildListQuery(ctx context.Context, base string, filter *types.InvoiceFilter, paginate bool) (string, []any) {
	var sb strings.Builder
	sb.WriteString(base)

	args := []any{types.GetTenantID(ctx), filter.GetStatus()}
	sb.WriteString(" WHERE tenant_id = $1 AND status = $2")

	if filter != nil {
		if len(filter.InvoiceIDs) > 0 {
			args = append(args, filter.InvoiceIDs)
			fmt.Fprintf(&sb, " AND id = ANY($%d)", len(args))
		}
		if filter.StudentID != nil {
			args = append(args, *filter.StudentID)
			fmt.Fprintf(&sb, " AND student_id = $%d", len(args))
		}
		if filter.AcademicSessionID != nil {
			args = append(args, *filter.AcademicSessionID)
			fmt.Fprintf(&sb, " AND academic_session_id = $%d", len(args))
		}
		if filter.InvoiceStatus != nil {
			args = append(args, *filter.InvoiceStatus)
			fmt.Fprintf(&sb, " AND invoice_status = $%d", len(args))
		}
		if filter.OverdueOnly {
			args = append(args, time.Now().UTC())
			fmt.Fprintf(&sb, " AND due_date < $%d AND balance_due > 0 AND invoice_status NOT IN ('draft', 'paid', 'cancelled', 'refunded')", len(args))
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

func (r *invoiceRepository) loadItems(ctx context.Context, inv *invoice.Invoice) error {
	query := fmt.Sprintf(`SELECT %s FROM invoice_items
		WHERE invoice_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at`, invoiceItemColumns)

	rows, err := r.db.Querier(ctx).Query(ctx, query, inv.ID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return wrapErr(err, "Invoice item")
	}
	defer rows.Close()

	inv.Items = nil
	for rows.Next() {
		var item invoice.Item
		err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.FeeStructureID, &item.Quantity, &item.UnitPrice,
			&item.TaxRate, &item.DiscountAmount, &item.LineTotal, &item.Description,
			&item.TenantID, &item.Status, &item.CreatedAt, &item.UpdatedAt, &item.CreatedBy, &item.UpdatedBy,
		)
		if err != nil {
			return wrapErr(err, "Invoice item")
		}
		inv.Items = append(inv.Items, &item)
	}
	return wrapErr(rows.Err(), "Invoice item")
}

func scanInvoice(row rowScanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.StudentID, &inv.AcademicSessionID, &inv.BillingPeriod,
		&inv.IssueDate, &inv.DueDate, &inv.InvoiceStatus, &inv.Subtotal, &inv.TotalDiscount, &inv.TotalTax,
		&inv.TotalAmount, &inv.AmountPaid, &inv.BalanceDue, &inv.LateFee, &inv.Notes, &inv.Version,
		&inv.TenantID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt, &inv.CreatedBy, &inv.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
