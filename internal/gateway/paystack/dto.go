package paystack

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// InitializeRequest is the hosted-checkout initialization payload. Amount is
// in the currency's minor unit per provider convention.
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	Currency    string         `json:"currency,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResponse carries the checkout session handles returned by the
// provider
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResponse is the provider's authoritative view of a transaction
type VerifyResponse struct {
	Reference         string          `json:"reference"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Channel           string          `json:"channel"`
	GatewayResponse   string          `json:"gateway_response"`
	PaidAt            string          `json:"paid_at"`
	AuthorizationCode string          `json:"authorization_code"`
	CustomerEmail     string          `json:"customer_email"`
}

// WebhookPayload is the envelope of an inbound provider notification
type WebhookPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebhookData is the transaction snapshot inside a webhook delivery
type WebhookData struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          string          `json:"paid_at"`
	Authorization   struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// apiEnvelope is the generic wrapper around every provider response
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// verifyData is the raw verification body before flattening
type verifyData struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          string          `json:"paid_at"`
	Authorization   struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"authorization"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
}
