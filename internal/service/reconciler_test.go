package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/student"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/gateway/paystack"
	"github.com/campusledger/campusledger/internal/testutil"
	"github.com/campusledger/campusledger/internal/types"
)

type ReconcilerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    ReconcilerService
	invoices   InvoiceService
	payments   PaymentService
	catalog    FeeCatalogService
	httpClient *testutil.MockHTTPClient
}

func TestReconcilerService(t *testing.T) {
	suite.Run(t, new(ReconcilerServiceSuite))
}

func (s *ReconcilerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.httpClient = testutil.NewMockHTTPClient()
	params := newTestServiceParams(&s.BaseServiceTestSuite, s.httpClient)
	s.service = NewReconcilerService(params)
	s.invoices = NewInvoiceService(params)
	s.payments = NewPaymentService(params)
	s.catalog = NewFeeCatalogService(params)

	err := s.GetStores().StudentDirectory.(*testutil.InMemoryStudentStore).Seed(s.GetContext(), &student.Student{
		ID:        "std-1",
		FullName:  "Ada Obi",
		Email:     "ada@example.com",
		ClassID:   "class-5a",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

// issuedInvoice builds and issues an invoice totalling 1050
func (s *ReconcilerServiceSuite) issuedInvoice() *dto.InvoiceResponse {
	structure, err := s.catalog.CreateFeeStructure(s.GetContext(), &dto.CreateFeeStructureRequest{
		Name:              "Tuition Fee",
		Code:              "TUI-2026",
		FeeType:           types.FeeTypeTuition,
		AcademicSessionID: "session-2026",
		Amount:            decimal.NewFromInt(1000),
		BillingCycle:      types.BillingCycleMonthly,
		DueDay:            10,
		TaxRate:           decimal.NewFromInt(5),
	})
	s.NoError(err)

	inv, err := s.invoices.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		StudentID:         "std-1",
		AcademicSessionID: "session-2026",
		BillingPeriod:     "2026-09",
		DueDate:           s.GetNow().AddDate(0, 0, 14),
		Items:             []dto.CreateInvoiceItemRequest{{FeeStructureID: structure.ID}},
	})
	s.NoError(err)

	issued, err := s.invoices.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	return issued
}

func (s *ReconcilerServiceSuite) registerInitializeResponse(reference string) {
	body := fmt.Sprintf(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example.com/%s","access_code":"ac_%s","reference":"%s"}}`,
		reference, reference, reference)
	s.httpClient.RegisterResponse(http.MethodPost,
		s.GetConfig().Gateway.BaseURL+"/transaction/initialize",
		testutil.MockResponse{Body: []byte(body)})
}

// initializeCheckout opens a checkout session the provider knows as reference
func (s *ReconcilerServiceSuite) initializeCheckout(invoiceID, reference string) *dto.InitializeGatewayResponse {
	s.registerInitializeResponse(reference)

	resp, err := s.service.InitializeTransaction(s.GetContext(), &dto.InitializeGatewayRequest{
		InvoiceID:     invoiceID,
		CustomerEmail: "ada@example.com",
	})
	s.NoError(err)
	return resp
}

func (s *ReconcilerServiceSuite) sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(s.GetConfig().Gateway.SecretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ReconcilerServiceSuite) webhookPayload(event, reference string) []byte {
	return []byte(fmt.Sprintf(`{"event":"%s","data":{"reference":"%s","status":"success","amount":105000,"currency":"NGN","gateway_response":"Approved","authorization":{"authorization_code":"AUTH_x9k"},"customer":{"email":"ada@example.com"}}}`,
		event, reference))
}

func (s *ReconcilerServiceSuite) TestInitializeTransaction() {
	inv := s.issuedInvoice()
	resp := s.initializeCheckout(inv.ID, "R1")

	s.Equal("R1", resp.Reference)
	s.Equal("https://checkout.example.com/R1", resp.AuthorizationURL)
	s.Equal("ac_R1", resp.AccessCode)

	// the pending payment carries the provider reference
	p, err := s.payments.GetPayment(s.GetContext(), resp.PaymentID)
	s.NoError(err)
	s.Equal(types.PaymentStatusPending, p.PaymentStatus)
	s.Equal(types.PaymentMethodGateway, p.PaymentMethod)
	s.Equal("R1", types.FromNillableString(p.GatewayReference))

	// the amount crossed the wire in minor units
	requests := s.httpClient.Requests()
	s.Len(requests, 1)
	var sent paystack.InitializeRequest
	s.NoError(json.Unmarshal(requests[0].Body, &sent))
	s.Equal(int64(105000), sent.Amount)
	s.Equal("ada@example.com", sent.Email)

	txn, err := s.GetStores().GatewayTxRepo.GetByReference(s.GetContext(), "R1")
	s.NoError(err)
	s.Equal(types.GatewayStatusPending, txn.RemoteStatus)
	s.Equal(resp.PaymentID, txn.PaymentID)
}

func (s *ReconcilerServiceSuite) TestInitializeFailureCancelsPayment() {
	inv := s.issuedInvoice()
	s.httpClient.RegisterResponse(http.MethodPost,
		s.GetConfig().Gateway.BaseURL+"/transaction/initialize",
		testutil.MockResponse{
			StatusCode: http.StatusBadRequest,
			Body:       []byte(`{"status":false,"message":"Invalid key"}`),
		})

	_, err := s.service.InitializeTransaction(s.GetContext(), &dto.InitializeGatewayRequest{
		InvoiceID:     inv.ID,
		CustomerEmail: "ada@example.com",
	})
	s.Error(err)

	// the orphaned local payment must not stay pending
	list, err := s.payments.ListPayments(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(1, list.Total)
	s.Equal(types.PaymentStatusCancelled, list.Items[0].PaymentStatus)
}

func (s *ReconcilerServiceSuite) TestWebhookChargeSuccess() {
	inv := s.issuedInvoice()
	resp := s.initializeCheckout(inv.ID, "R1")

	payload := s.webhookPayload(types.GatewayEventChargeSuccess, "R1")
	result, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.NoError(err)
	s.Equal("applied", result.Outcome)
	s.False(result.Replayed)
	s.Equal("R1", result.Reference)

	p, err := s.payments.GetPayment(s.GetContext(), resp.PaymentID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.PaymentStatus)
	s.Equal("AUTH_x9k", types.FromNillableString(p.AuthorizationCode))

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(1050)))
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)

	txn, err := s.GetStores().GatewayTxRepo.GetByReference(s.GetContext(), "R1")
	s.NoError(err)
	s.Equal(types.GatewayStatusSuccess, txn.RemoteStatus)
}

func (s *ReconcilerServiceSuite) TestWebhookDeliveredTwiceAppliesOnce() {
	inv := s.issuedInvoice()
	s.initializeCheckout(inv.ID, "R1")

	payload := s.webhookPayload(types.GatewayEventChargeSuccess, "R1")
	first, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.NoError(err)
	s.False(first.Replayed)

	second, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.NoError(err)
	s.True(second.Replayed)
	s.Equal(first.EventID, second.EventID)
	s.Equal("applied", second.Outcome)

	// the ledger moved exactly once
	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(1050)))
	s.Len(s.GetPublisher().EventsByName(types.EventPaymentCompleted), 1)
}

func (s *ReconcilerServiceSuite) TestWebhookBadSignatureFailsClosed() {
	inv := s.issuedInvoice()
	s.initializeCheckout(inv.ID, "R1")

	payload := s.webhookPayload(types.GatewayEventChargeSuccess, "R1")
	_, err := s.service.HandleWebhookEvent(s.GetContext(), payload, "deadbeef")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	// nothing was recorded or applied
	events, err := s.GetStores().WebhookEventRepo.ListUnprocessed(s.GetContext())
	s.NoError(err)
	s.Empty(events)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
}

func (s *ReconcilerServiceSuite) TestWebhookMissingSignatureFailsClosed() {
	payload := s.webhookPayload(types.GatewayEventChargeSuccess, "R1")
	_, err := s.service.HandleWebhookEvent(s.GetContext(), payload, "")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ReconcilerServiceSuite) TestWebhookUnknownReference() {
	payload := s.webhookPayload(types.GatewayEventChargeSuccess, "R-unknown")
	_, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	// the delivery stays queued for manual replay
	events, err := s.GetStores().WebhookEventRepo.ListUnprocessed(s.GetContext())
	s.NoError(err)
	s.Len(events, 1)
	s.Equal("R-unknown", events[0].Reference)
}

func (s *ReconcilerServiceSuite) TestWebhookUnknownEventTypeIgnored() {
	inv := s.issuedInvoice()
	s.initializeCheckout(inv.ID, "R1")

	payload := s.webhookPayload("transfer.success", "R1")
	result, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.NoError(err)
	s.Equal("ignored", result.Outcome)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
}

func (s *ReconcilerServiceSuite) TestWebhookChargeFailed() {
	inv := s.issuedInvoice()
	resp := s.initializeCheckout(inv.ID, "R1")

	payload := s.webhookPayload(types.GatewayEventChargeFailed, "R1")
	result, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.NoError(err)
	s.Equal("applied", result.Outcome)

	p, err := s.payments.GetPayment(s.GetContext(), resp.PaymentID)
	s.NoError(err)
	s.Equal(types.PaymentStatusFailed, p.PaymentStatus)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())

	txn, err := s.GetStores().GatewayTxRepo.GetByReference(s.GetContext(), "R1")
	s.NoError(err)
	s.Equal(types.GatewayStatusFailed, txn.RemoteStatus)
}

func (s *ReconcilerServiceSuite) TestWebhookAfterTerminalIsNoop() {
	inv := s.issuedInvoice()
	s.initializeCheckout(inv.ID, "R1")

	success := s.webhookPayload(types.GatewayEventChargeSuccess, "R1")
	_, err := s.service.HandleWebhookEvent(s.GetContext(), success, s.sign(success))
	s.NoError(err)

	// a contradictory follow-up delivery cannot unwind the outcome
	failed := s.webhookPayload(types.GatewayEventChargeFailed, "R1")
	result, err := s.service.HandleWebhookEvent(s.GetContext(), failed, s.sign(failed))
	s.NoError(err)
	s.Equal("noop", result.Outcome)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(1050)))
}

func (s *ReconcilerServiceSuite) TestVerifyTransaction() {
	inv := s.issuedInvoice()
	resp := s.initializeCheckout(inv.ID, "R1")

	body := `{"status":true,"message":"Verification successful","data":{"reference":"R1","status":"success","amount":105000,"currency":"NGN","channel":"card","gateway_response":"Approved","paid_at":"2026-08-29T10:00:00Z","authorization":{"authorization_code":"AUTH_x9k"},"customer":{"email":"ada@example.com"}}}`
	s.httpClient.RegisterResponse(http.MethodGet,
		s.GetConfig().Gateway.BaseURL+"/transaction/verify/R1",
		testutil.MockResponse{Body: []byte(body)})

	verified, err := s.service.VerifyTransaction(s.GetContext(), "R1")
	s.NoError(err)
	s.Equal("R1", verified.Reference)
	s.Equal(types.GatewayStatusSuccess, verified.RemoteStatus)
	s.Equal(resp.PaymentID, verified.PaymentID)

	p, err := s.payments.GetPayment(s.GetContext(), resp.PaymentID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.PaymentStatus)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
}

func (s *ReconcilerServiceSuite) TestVerifyThenWebhookConverge() {
	inv := s.issuedInvoice()
	s.initializeCheckout(inv.ID, "R1")

	body := `{"status":true,"message":"Verification successful","data":{"reference":"R1","status":"success","amount":105000,"currency":"NGN","channel":"card","gateway_response":"Approved","paid_at":"2026-08-29T10:00:00Z","authorization":{"authorization_code":"AUTH_x9k"},"customer":{"email":"ada@example.com"}}}`
	s.httpClient.RegisterResponse(http.MethodGet,
		s.GetConfig().Gateway.BaseURL+"/transaction/verify/R1",
		testutil.MockResponse{Body: []byte(body)})

	_, err := s.service.VerifyTransaction(s.GetContext(), "R1")
	s.NoError(err)

	// the late webhook for the same charge has nothing left to do
	payload := s.webhookPayload(types.GatewayEventChargeSuccess, "R1")
	result, err := s.service.HandleWebhookEvent(s.GetContext(), payload, s.sign(payload))
	s.NoError(err)
	s.Equal("noop", result.Outcome)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(1050)))
}
