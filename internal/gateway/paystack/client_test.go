package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusledger/campusledger/internal/config"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/testutil"
	"github.com/campusledger/campusledger/internal/types"
)

func newTestClient(t *testing.T, httpClient *testutil.MockHTTPClient) Client {
	cfg := &config.Configuration{
		Logging: config.LoggingConfig{Level: types.LogLevelInfo},
		Gateway: config.GatewayConfig{
			BaseURL:   "https://api.paystack.co",
			SecretKey: "sk_test_secret",
			Currency:  "NGN",
		},
	}
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)
	return NewClient(httpClient, cfg, log)
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInitialize(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	httpClient.RegisterResponse(http.MethodPost, "https://api.paystack.co/transaction/initialize", testutil.MockResponse{
		Body: []byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example.com/ac_1","access_code":"ac_1","reference":"R1"}}`),
	})
	client := newTestClient(t, httpClient)

	resp, err := client.Initialize(context.Background(), &InitializeRequest{
		Email:     "ada@example.com",
		Amount:    105000,
		Reference: "R1",
	})
	require.NoError(t, err)
	assert.Equal(t, "R1", resp.Reference)
	assert.Equal(t, "ac_1", resp.AccessCode)
	assert.Equal(t, "https://checkout.example.com/ac_1", resp.AuthorizationURL)

	requests := httpClient.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "Bearer sk_test_secret", requests[0].Headers["Authorization"])
}

func TestInitializeRejectedEnvelope(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	httpClient.RegisterResponse(http.MethodPost, "https://api.paystack.co/transaction/initialize", testutil.MockResponse{
		Body: []byte(`{"status":false,"message":"Invalid key"}`),
	})
	client := newTestClient(t, httpClient)

	_, err := client.Initialize(context.Background(), &InitializeRequest{
		Email:     "ada@example.com",
		Amount:    105000,
		Reference: "R1",
	})
	assert.Error(t, err)
}

func TestVerifyFlattensAuthorization(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	httpClient.RegisterResponse(http.MethodGet, "https://api.paystack.co/transaction/verify/R1", testutil.MockResponse{
		Body: []byte(`{"status":true,"message":"Verification successful","data":{"reference":"R1","status":"success","amount":105000,"currency":"NGN","channel":"card","gateway_response":"Approved","paid_at":"2026-08-29T10:00:00Z","authorization":{"authorization_code":"AUTH_x9k"},"customer":{"email":"ada@example.com"}}}`),
	})
	client := newTestClient(t, httpClient)

	resp, err := client.Verify(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "AUTH_x9k", resp.AuthorizationCode)
	assert.Equal(t, "ada@example.com", resp.CustomerEmail)
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := newTestClient(t, testutil.NewMockHTTPClient())
	payload := []byte(`{"event":"charge.success"}`)

	assert.NoError(t, client.VerifyWebhookSignature(payload, sign("sk_test_secret", payload)))
}

func TestVerifyWebhookSignatureMismatch(t *testing.T) {
	client := newTestClient(t, testutil.NewMockHTTPClient())
	payload := []byte(`{"event":"charge.success"}`)

	err := client.VerifyWebhookSignature(payload, sign("other_secret", payload))
	assert.Error(t, err)
	assert.True(t, ierr.IsPermissionDenied(err))
}

func TestVerifyWebhookSignatureMissing(t *testing.T) {
	client := newTestClient(t, testutil.NewMockHTTPClient())

	err := client.VerifyWebhookSignature([]byte(`{}`), "")
	assert.Error(t, err)
	assert.True(t, ierr.IsPermissionDenied(err))
}
