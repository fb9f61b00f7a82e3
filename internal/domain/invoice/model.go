package invoice

import (
	"time"

	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents the central financial record for one student and
// billing period. The aggregate fields (subtotal, discount, tax, total,
// paid, balance) form the ledger; status is a pure function of the amounts.
type Invoice struct {
	ID                string              `json:"id"`
	InvoiceNumber     string              `json:"invoice_number"`
	StudentID         string              `json:"student_id"`
	AcademicSessionID string              `json:"academic_session_id"`
	BillingPeriod     string              `json:"billing_period"`
	IssueDate         *time.Time          `json:"issue_date,omitempty"`
	DueDate           time.Time           `json:"due_date"`
	InvoiceStatus     types.InvoiceStatus `json:"invoice_status"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	TotalDiscount     decimal.Decimal     `json:"total_discount"`
	TotalTax          decimal.Decimal     `json:"total_tax"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	AmountPaid        decimal.Decimal     `json:"amount_paid"`
	BalanceDue        decimal.Decimal     `json:"balance_due"`
	LateFee           decimal.Decimal     `json:"late_fee"`
	Notes             string              `json:"notes,omitempty"`
	Items             []*Item             `json:"items,omitempty"`

	// Version guards optimistic updates where row locks are unavailable
	Version int `json:"version"`

	types.BaseModel
}

// BalanceRemaining returns total minus paid, floored at zero
func (i *Invoice) BalanceRemaining() decimal.Decimal {
	balance := i.TotalAmount.Sub(i.AmountPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsOverdue reports whether the invoice is past due with money outstanding.
// Overdue is a read-time view; it is never stored in place of the payment
// derived status.
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	if i.InvoiceStatus.IsTerminal() || i.InvoiceStatus == types.InvoiceStatusDraft {
		return false
	}
	return i.DueDate.Before(asOf.Truncate(24*time.Hour)) && i.BalanceDue.IsPositive()
}

// DaysOverdue returns the number of whole days past the due date, zero when
// not overdue
func (i *Invoice) DaysOverdue(asOf time.Time) int {
	if !i.IsOverdue(asOf) {
		return 0
	}
	return int(asOf.Truncate(24 * time.Hour).Sub(i.DueDate.Truncate(24*time.Hour)).Hours() / 24)
}

// IsEditable reports whether line items may still be added
func (i *Invoice) IsEditable() bool {
	return i.InvoiceStatus == types.InvoiceStatusDraft
}

// Validate validates the invoice ledger invariants
func (i *Invoice) Validate() error {
	if i.StudentID == "" {
		return ierr.NewError("invalid student").
			WithHint("Student is required").
			Mark(ierr.ErrValidation)
	}
	if i.Subtotal.IsNegative() || i.TotalDiscount.IsNegative() || i.TotalTax.IsNegative() {
		return ierr.NewError("invalid invoice aggregates").
			WithHint("Invoice aggregates must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.TotalAmount.IsNegative() {
		return ierr.NewError("invalid total amount").
			WithHint("Total amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.AmountPaid.IsNegative() {
		return ierr.NewError("invalid amount paid").
			WithHint("Amount paid must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.BalanceDue.IsNegative() {
		return ierr.NewError("invalid balance due").
			WithHint("Balance due must be non negative").
			Mark(ierr.ErrValidation)
	}
	if !i.BalanceDue.Equal(i.BalanceRemaining()) {
		return ierr.NewError("inconsistent balance").
			WithHint("Balance due must equal total amount minus amount paid").
			Mark(ierr.ErrValidation)
	}
	for _, item := range i.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Item represents a single line of an invoice, owned exclusively by it
type Item struct {
	ID             string          `json:"id"`
	InvoiceID      string          `json:"invoice_id"`
	FeeStructureID string          `json:"fee_structure_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
	Description    string          `json:"description,omitempty"`

	types.BaseModel
}

// ComputeLineTotal recalculates the line total from its parts, clamped at zero
func (it *Item) ComputeLineTotal() decimal.Decimal {
	base := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
	tax := base.Mul(it.TaxRate).Div(decimal.NewFromInt(100))
	total := base.Add(tax).Sub(it.DiscountAmount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// BaseAmount returns quantity times unit price before tax and discount
func (it *Item) BaseAmount() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// TaxAmount returns the tax charged on the base amount
func (it *Item) TaxAmount() decimal.Decimal {
	return it.BaseAmount().Mul(it.TaxRate).Div(decimal.NewFromInt(100))
}

// Validate validates the invoice item
func (it *Item) Validate() error {
	if it.FeeStructureID == "" {
		return ierr.NewError("invalid fee structure").
			WithHint("Fee structure is required").
			Mark(ierr.ErrValidation)
	}
	if it.Quantity < 1 {
		return ierr.NewError("invalid quantity").
			WithHint("Quantity must be at least 1").
			Mark(ierr.ErrValidation)
	}
	if it.UnitPrice.IsNegative() {
		return ierr.NewError("invalid unit price").
			WithHint("Unit price must be non negative").
			Mark(ierr.ErrValidation)
	}
	if it.DiscountAmount.IsNegative() {
		return ierr.NewError("invalid discount amount").
			WithHint("Discount amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if it.LineTotal.IsNegative() {
		return ierr.NewError("invalid line total").
			WithHint("Line total must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
