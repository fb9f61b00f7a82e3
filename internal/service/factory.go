package service

import (
	"github.com/campusledger/campusledger/internal/config"
	"github.com/campusledger/campusledger/internal/domain/fee"
	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	"github.com/campusledger/campusledger/internal/domain/invoice"
	"github.com/campusledger/campusledger/internal/domain/payment"
	"github.com/campusledger/campusledger/internal/domain/sequence"
	"github.com/campusledger/campusledger/internal/domain/student"
	"github.com/campusledger/campusledger/internal/gateway/paystack"
	"github.com/campusledger/campusledger/internal/httpclient"
	"github.com/campusledger/campusledger/internal/idempotency"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/publisher"
)

// ServiceParams bundles the shared dependencies every service draws from
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	FeeStructureRepo fee.StructureRepository
	DiscountRepo     fee.DiscountRepository
	InvoiceRepo      invoice.Repository
	PaymentRepo      payment.Repository
	GatewayTxRepo    gatewaytx.Repository
	WebhookEventRepo gatewaytx.WebhookEventRepository
	StudentDirectory student.Directory
	Sequences        sequence.Allocator

	// Publishers
	EventPublisher publisher.EventPublisher

	// Gateway
	GatewayClient paystack.Client

	// http client
	Client httpclient.Client
}

// NewServiceParams assembles the shared service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	feeStructureRepo fee.StructureRepository,
	discountRepo fee.DiscountRepository,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	gatewayTxRepo gatewaytx.Repository,
	webhookEventRepo gatewaytx.WebhookEventRepository,
	studentDirectory student.Directory,
	sequences sequence.Allocator,
	eventPublisher publisher.EventPublisher,
	gatewayClient paystack.Client,
	client httpclient.Client,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		FeeStructureRepo: feeStructureRepo,
		DiscountRepo:     discountRepo,
		InvoiceRepo:      invoiceRepo,
		PaymentRepo:      paymentRepo,
		GatewayTxRepo:    gatewayTxRepo,
		WebhookEventRepo: webhookEventRepo,
		StudentDirectory: studentDirectory,
		Sequences:        sequences,
		EventPublisher:   eventPublisher,
		GatewayClient:    gatewayClient,
		Client:           client,
	}
}

// idempotencyGenerator derives webhook and payment idempotency keys
var idempotencyGenerator = idempotency.NewGenerator()
