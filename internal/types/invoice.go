package types

import (
	"fmt"

	"github.com/samber/lo"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusIssued,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusCancelled,
		InvoiceStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid invoice status: %s", s)
	}
	return nil
}

// IsTerminal returns true when no further balance-affecting transitions are allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled || s == InvoiceStatusRefunded
}

// InvoiceFilter represents the filter for listing invoices
type InvoiceFilter struct {
	*QueryFilter

	InvoiceIDs        []string       `form:"invoice_ids"`
	StudentID         *string        `form:"student_id"`
	AcademicSessionID *string        `form:"academic_session_id"`
	InvoiceStatus     *InvoiceStatus `form:"invoice_status"`
	OverdueOnly       bool           `form:"overdue_only"`
}

// NewNoLimitInvoiceFilter creates a new invoice filter with no limit
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the invoice filter
func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.InvoiceStatus != nil {
		if err := f.InvoiceStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}
