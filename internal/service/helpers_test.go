package service

import (
	"github.com/campusledger/campusledger/internal/gateway/paystack"
	"github.com/campusledger/campusledger/internal/httpclient"
	"github.com/campusledger/campusledger/internal/testutil"
)

// newTestServiceParams wires the in-memory stores into ServiceParams. The
// gateway client, when an HTTP client is given, is the real provider client
// pointed at the mock transport.
func newTestServiceParams(s *testutil.BaseServiceTestSuite, httpClient httpclient.Client) ServiceParams {
	stores := s.GetStores()
	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		FeeStructureRepo: stores.FeeStructureRepo,
		DiscountRepo:     stores.DiscountRepo,
		InvoiceRepo:      stores.InvoiceRepo,
		PaymentRepo:      stores.PaymentRepo,
		GatewayTxRepo:    stores.GatewayTxRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		StudentDirectory: stores.StudentDirectory,
		Sequences:        stores.Sequences,
		EventPublisher:   s.GetPublisher(),
		Client:           httpClient,
	}
	if httpClient != nil {
		params.GatewayClient = paystack.NewClient(httpClient, s.GetConfig(), s.GetLogger())
	}
	return params
}
