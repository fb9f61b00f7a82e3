package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/domain/payment"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/campusledger/campusledger/internal/validator"
)

// CreatePaymentRequest records a money-movement attempt against an invoice
type CreatePaymentRequest struct {
	InvoiceID     string              `json:"invoice_id" validate:"required"`
	Amount        decimal.Decimal     `json:"amount" validate:"required"`
	PaymentMethod types.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentDate   *time.Time          `json:"payment_date,omitempty"`
	CustomerEmail *string             `json:"customer_email,omitempty"`
	Metadata      types.Metadata      `json:"metadata,omitempty"`

	// ProcessPayment completes the payment in the same call, the normal path
	// for cash and other offline methods
	ProcessPayment bool `json:"process_payment"`
}

func (r *CreatePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	return r.PaymentMethod.Validate()
}

// FailPaymentRequest marks a pending payment as failed
type FailPaymentRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RefundPaymentRequest reverses all or part of a completed payment
type RefundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// PaymentResponse is the external view of a payment
type PaymentResponse struct {
	*payment.Payment
}

// NewPaymentResponse builds a payment response
func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{Payment: p}
}

// ListPaymentsResponse is a paginated payment listing
type ListPaymentsResponse struct {
	Items []*PaymentResponse `json:"items"`
	Total int                `json:"total"`
}
