package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/campusledger/campusledger/internal/config"
	"github.com/campusledger/campusledger/internal/domain/fee"
	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	"github.com/campusledger/campusledger/internal/domain/invoice"
	"github.com/campusledger/campusledger/internal/domain/payment"
	"github.com/campusledger/campusledger/internal/domain/sequence"
	"github.com/campusledger/campusledger/internal/domain/student"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/campusledger/campusledger/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	FeeStructureRepo fee.StructureRepository
	DiscountRepo     fee.DiscountRepository
	InvoiceRepo      invoice.Repository
	PaymentRepo      payment.Repository
	GatewayTxRepo    gatewaytx.Repository
	WebhookEventRepo gatewaytx.WebhookEventRepository
	StudentDirectory student.Directory
	Sequences        sequence.Allocator
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	publisher *InMemoryEventPublisher
	db        postgres.IClient
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := &config.Configuration{
		Logging: config.LoggingConfig{
			Level: types.LogLevelInfo,
		},
		Gateway: config.GatewayConfig{
			BaseURL:   "https://api.paystack.co",
			SecretKey: "sk_test_secret",
			Currency:  "NGN",
		},
		Event: config.EventConfig{
			Topic: "domain_events",
		},
	}
	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxTenantID, types.DefaultTenantID)
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, types.DefaultUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		FeeStructureRepo: NewInMemoryFeeStructureStore(),
		DiscountRepo:     NewInMemoryDiscountStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		GatewayTxRepo:    NewInMemoryGatewayTxStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
		StudentDirectory: NewInMemoryStudentStore(),
		Sequences:        NewInMemorySequenceAllocator(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.publisher = NewInMemoryEventPublisher()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.FeeStructureRepo.(*InMemoryFeeStructureStore).Clear()
	s.stores.DiscountRepo.(*InMemoryDiscountStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.GatewayTxRepo.(*InMemoryGatewayTxStore).Clear()
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
	s.stores.StudentDirectory.(*InMemoryStudentStore).Clear()
	s.stores.Sequences.(*InMemorySequenceAllocator).Clear()
	s.publisher.Clear()
}

// ClearStores resets all stores mid-test
func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the in-memory event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryEventPublisher {
	return s.publisher
}

// GetDB returns the mock database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the reference time for the current test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
