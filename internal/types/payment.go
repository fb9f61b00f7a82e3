package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid payment status: %s", s)
	}
	return nil
}

// IsTerminal returns true when the payment can no longer change ledger state
// except through an explicit refund of a completed payment
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusCancelled || s == PaymentStatusRefunded
}

// PaymentMethod represents how the money moved
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodMobile       PaymentMethod = "mobile"
	PaymentMethodGateway      PaymentMethod = "gateway"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	allowed := []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodCheque,
		PaymentMethodBankTransfer,
		PaymentMethodCard,
		PaymentMethodOnline,
		PaymentMethodMobile,
		PaymentMethodGateway,
		PaymentMethodOther,
	}
	if !lo.Contains(allowed, m) {
		return fmt.Errorf("invalid payment method: %s", m)
	}
	return nil
}

// PaymentFilter represents the filter for listing payments
type PaymentFilter struct {
	*QueryFilter

	PaymentIDs    []string       `form:"payment_ids"`
	InvoiceID     *string        `form:"invoice_id"`
	StudentID     *string        `form:"student_id"`
	PaymentMethod *PaymentMethod `form:"payment_method"`
	PaymentStatus *PaymentStatus `form:"payment_status"`
}

// NewNoLimitPaymentFilter creates a new payment filter with no limit
func NewNoLimitPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the payment filter
func (f *PaymentFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.PaymentStatus != nil {
		if err := f.PaymentStatus.Validate(); err != nil {
			return err
		}
	}
	if f.PaymentMethod != nil {
		if err := f.PaymentMethod.Validate(); err != nil {
			return err
		}
	}
	return nil
}
