package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/campusledger/campusledger/internal/api"
	v1 "github.com/campusledger/campusledger/internal/api/v1"
	"github.com/campusledger/campusledger/internal/config"
	"github.com/campusledger/campusledger/internal/gateway/paystack"
	"github.com/campusledger/campusledger/internal/httpclient"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/publisher"
	"github.com/campusledger/campusledger/internal/pubsub/memory"
	"github.com/campusledger/campusledger/internal/repository"
	"github.com/campusledger/campusledger/internal/service"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/campusledger/campusledger/internal/validator"
)

// @title CampusLedger API
// @version 1.0
// @description School billing and payment reconciliation service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewPool,
			postgres.NewClient,

			// Event publisher
			memory.NewPubSub,
			publisher.NewPublisher,

			// HTTP client and payment gateway
			provideHTTPClient,
			paystack.NewClient,

			// Repositories
			repository.NewFeeStructureRepository,
			repository.NewDiscountRepository,
			repository.NewInvoiceRepository,
			repository.NewPaymentRepository,
			repository.NewGatewayTxRepository,
			repository.NewWebhookEventRepository,
			repository.NewSequenceAllocator,
			repository.NewStudentDirectory,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewFeeCatalogService,
			service.NewInvoiceService,
			service.NewLedgerService,
			service.NewPaymentService,
			service.NewReconcilerService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHTTPClient(cfg *config.Configuration) httpclient.Client {
	if cfg.Gateway.TimeoutSeconds > 0 {
		return httpclient.NewClientWithTimeout(time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second)
	}
	return httpclient.NewDefaultClient()
}

func provideHandlers(
	logger *logger.Logger,
	feeCatalogService service.FeeCatalogService,
	invoiceService service.InvoiceService,
	ledgerService service.LedgerService,
	paymentService service.PaymentService,
	reconcilerService service.ReconcilerService,
) api.Handlers {
	return api.Handlers{
		Fee:     v1.NewFeeHandler(feeCatalogService, logger),
		Invoice: v1.NewInvoiceHandler(invoiceService, ledgerService, logger),
		Payment: v1.NewPaymentHandler(paymentService, logger),
		Gateway: v1.NewGatewayHandler(reconcilerService, logger),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	pub publisher.EventPublisher,
	db postgres.IClient,
	log *logger.Logger,
) {
	if cfg.Deployment.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			if err := pub.Close(); err != nil {
				log.Errorw("failed to close event publisher", "error", err)
			}
			db.Close()
			return nil
		},
	})
}
