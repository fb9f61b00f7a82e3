package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/domain/invoice"
	"github.com/campusledger/campusledger/internal/validator"
)

// CreateInvoiceRequest opens a draft invoice for a student and billing period.
// Line items reference fee structures; discounts are resolved per line at
// build time.
type CreateInvoiceRequest struct {
	StudentID         string                     `json:"student_id" validate:"required"`
	AcademicSessionID string                     `json:"academic_session_id" validate:"required"`
	BillingPeriod     string                     `json:"billing_period" validate:"required"`
	DueDate           time.Time                  `json:"due_date" validate:"required"`
	Notes             string                     `json:"notes,omitempty"`
	Items             []CreateInvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r *CreateInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CreateInvoiceItemRequest is one line of a new invoice
type CreateInvoiceItemRequest struct {
	FeeStructureID string   `json:"fee_structure_id" validate:"required"`
	Quantity       int      `json:"quantity" validate:"omitempty,min=1"`
	DiscountIDs    []string `json:"discount_ids,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// AddInvoiceItemRequest appends a line to a draft invoice
type AddInvoiceItemRequest struct {
	FeeStructureID string   `json:"fee_structure_id" validate:"required"`
	Quantity       int      `json:"quantity" validate:"omitempty,min=1"`
	DiscountIDs    []string `json:"discount_ids,omitempty"`
	Description    string   `json:"description,omitempty"`
}

func (r *AddInvoiceItemRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// InvoiceResponse is the external view of an invoice with its ledger fields
type InvoiceResponse struct {
	*invoice.Invoice

	// DaysOverdue is derived at read time, never stored
	DaysOverdue int  `json:"days_overdue"`
	Overdue     bool `json:"overdue"`
}

// NewInvoiceResponse builds an invoice response with read-time overdue info
func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	now := time.Now().UTC()
	return &InvoiceResponse{
		Invoice:     inv,
		DaysOverdue: inv.DaysOverdue(now),
		Overdue:     inv.IsOverdue(now),
	}
}

// ListInvoicesResponse is a paginated invoice listing
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

// LateFeePreviewResponse shows the late fee a given date would attract
type LateFeePreviewResponse struct {
	InvoiceID   string          `json:"invoice_id"`
	AsOf        time.Time       `json:"as_of"`
	DaysOverdue int             `json:"days_overdue"`
	LateFee     decimal.Decimal `json:"late_fee"`
}
