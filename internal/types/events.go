package types

import (
	"encoding/json"
	"time"
)

// DomainEvent represents a state-transition event emitted for external
// subscribers such as the notification dispatcher
type DomainEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Domain event names emitted after each state transition
const (
	EventInvoiceIssued    = "invoice.issued"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceCancelled = "invoice.cancelled"
	EventInvoiceOverdue   = "invoice.overdue"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)
