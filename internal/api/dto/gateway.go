package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/campusledger/campusledger/internal/validator"
)

// InitializeGatewayRequest opens a hosted checkout session for an invoice
type InitializeGatewayRequest struct {
	InvoiceID     string           `json:"invoice_id" validate:"required"`
	CustomerEmail string           `json:"customer_email" validate:"required,email"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Metadata      types.Metadata   `json:"metadata,omitempty"`
}

func (r *InitializeGatewayRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// InitializeGatewayResponse returns the checkout handles for the client
type InitializeGatewayResponse struct {
	PaymentID        string `json:"payment_id"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// GatewayTransactionResponse is the external view of a gateway transaction
type GatewayTransactionResponse struct {
	*gatewaytx.Transaction
}

// NewGatewayTransactionResponse builds a gateway transaction response
func NewGatewayTransactionResponse(txn *gatewaytx.Transaction) *GatewayTransactionResponse {
	return &GatewayTransactionResponse{Transaction: txn}
}

// WebhookResultResponse reports what a webhook delivery did
type WebhookResultResponse struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Reference string `json:"reference"`
	Outcome   string `json:"outcome"`
	Replayed  bool   `json:"replayed"`
}

// VerifyTransactionResponse reports the reconciled state after verification
type VerifyTransactionResponse struct {
	Reference    string              `json:"reference"`
	RemoteStatus types.GatewayStatus `json:"remote_status"`
	PaymentID    string              `json:"payment_id"`
	SyncedAt     time.Time           `json:"synced_at"`
}
