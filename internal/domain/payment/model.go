package payment

import (
	"time"

	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/shopspring/decimal"
)

// Payment represents one money-movement attempt against an invoice.
// Exactly one transition into completed ever applies its amount to the
// invoice ledger; failed and cancelled payments have no ledger effect.
type Payment struct {
	ID            string              `json:"id"`
	PaymentNumber string              `json:"payment_number"`
	InvoiceID     string              `json:"invoice_id"`
	StudentID     string              `json:"student_id"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod types.PaymentMethod `json:"payment_method"`
	PaymentDate   time.Time           `json:"payment_date"`
	RecordedBy    string              `json:"recorded_by"`
	PaymentStatus types.PaymentStatus `json:"payment_status"`

	// Gateway correlation fields
	GatewayReference  *string        `json:"gateway_reference,omitempty"`
	AuthorizationCode *string        `json:"authorization_code,omitempty"`
	CustomerEmail     *string        `json:"customer_email,omitempty"`
	Metadata          types.Metadata `json:"metadata,omitempty"`

	ErrorMessage  *string    `json:"error_message,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	ReceiptIssued bool       `json:"receipt_issued"`

	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.Amount.IsZero() || p.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if p.InvoiceID == "" {
		return ierr.NewError("invalid invoice id").
			WithHint("Invoice is required").
			Mark(ierr.ErrValidation)
	}
	if p.StudentID == "" {
		return ierr.NewError("invalid student id").
			WithHint("Student is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.PaymentMethod.Validate(); err != nil {
		return ierr.NewError("invalid payment method").
			WithHint("Payment method is invalid").
			Mark(ierr.ErrValidation)
	}
	if p.PaymentMethod == types.PaymentMethodGateway && types.FromNillableString(p.CustomerEmail) == "" {
		return ierr.NewError("missing customer email").
			WithHint("Customer email is required for gateway payments").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the payment
func (p *Payment) TableName() string {
	return "payments"
}
