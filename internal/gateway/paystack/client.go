package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/campusledger/campusledger/internal/config"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/httpclient"
	"github.com/campusledger/campusledger/internal/logger"
)

// Client is the hosted-payment provider integration. All money amounts cross
// this boundary in the currency's minor unit.
type Client interface {
	// Initialize opens a hosted checkout session for the given request
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error)

	// Verify fetches the authoritative transaction state by reference
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)

	// VerifyWebhookSignature checks the provider signature over the raw
	// request body. It fails closed: any mismatch or missing secret is an
	// error.
	VerifyWebhookSignature(payload []byte, signature string) error
}

type client struct {
	httpClient httpclient.Client
	config     *config.GatewayConfig
	logger     *logger.Logger
}

// NewClient creates a new provider client from the gateway configuration
func NewClient(httpClient httpclient.Client, cfg *config.Configuration, log *logger.Logger) Client {
	return &client{
		httpClient: httpClient,
		config:     &cfg.Gateway,
		logger:     log,
	}
}

func (c *client) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	if c.config.SecretKey == "" {
		return nil, ierr.NewError("gateway not configured").
			WithHint("Online payments are not available").
			Mark(ierr.ErrHTTPClient)
	}
	if req.Currency == "" {
		req.Currency = c.config.Currency
	}
	if req.CallbackURL == "" {
		req.CallbackURL = c.config.CallbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode gateway request").
			Mark(ierr.ErrSystem)
	}

	resp, err := c.httpClient.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/transaction/initialize", c.config.BaseURL),
		Headers: c.headers(),
		Body:    body,
	})
	if err != nil {
		return nil, err
	}

	data, err := c.decodeEnvelope(resp.Body)
	if err != nil {
		return nil, err
	}

	var out InitializeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway returned an unexpected response").
			Mark(ierr.ErrHTTPClient)
	}

	c.logger.Infow("initialized gateway transaction",
		"reference", out.Reference,
		"access_code", out.AccessCode,
	)
	return &out, nil
}

func (c *client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	if reference == "" {
		return nil, ierr.NewError("missing reference").
			WithHint("Transaction reference is required").
			Mark(ierr.ErrValidation)
	}

	resp, err := c.httpClient.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s/transaction/verify/%s", c.config.BaseURL, reference),
		Headers: c.headers(),
	})
	if err != nil {
		return nil, err
	}

	data, err := c.decodeEnvelope(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw verifyData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway returned an unexpected response").
			Mark(ierr.ErrHTTPClient)
	}

	return &VerifyResponse{
		Reference:         raw.Reference,
		Status:            raw.Status,
		Amount:            raw.Amount,
		Currency:          raw.Currency,
		Channel:           raw.Channel,
		GatewayResponse:   raw.GatewayResponse,
		PaidAt:            raw.PaidAt,
		AuthorizationCode: raw.Authorization.AuthorizationCode,
		CustomerEmail:     raw.Customer.Email,
	}, nil
}

// VerifyWebhookSignature compares the HMAC-SHA512 of the raw body against the
// provider-sent signature in constant time
func (c *client) VerifyWebhookSignature(payload []byte, signature string) error {
	secret := c.config.WebhookSecret
	if secret == "" {
		secret = c.config.SecretKey
	}
	if secret == "" || signature == "" {
		return ierr.NewError("invalid webhook signature").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrPermissionDenied)
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ierr.NewError("invalid webhook signature").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

func (c *client) headers() map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", c.config.SecretKey),
		"Content-Type":  "application/json",
	}
}

func (c *client) decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway returned an unexpected response").
			Mark(ierr.ErrHTTPClient)
	}
	if !env.Status {
		return nil, ierr.NewError("gateway request rejected").
			WithHint("Payment could not be completed, please retry").
			WithReportableDetails(map[string]any{"message": env.Message}).
			Mark(ierr.ErrHTTPClient)
	}
	return env.Data, nil
}
