package repository

import (
	"github.com/campusledger/campusledger/internal/domain/fee"
	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	"github.com/campusledger/campusledger/internal/domain/invoice"
	"github.com/campusledger/campusledger/internal/domain/payment"
	"github.com/campusledger/campusledger/internal/domain/sequence"
	"github.com/campusledger/campusledger/internal/domain/student"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/repository/pg"
)

// Constructors for the postgres-backed repositories, kept in one place so
// the application wiring does not reach into the pg package directly.

func NewFeeStructureRepository(db postgres.IClient, log *logger.Logger) fee.StructureRepository {
	return pg.NewFeeStructureRepository(db, log)
}

func NewDiscountRepository(db postgres.IClient, log *logger.Logger) fee.DiscountRepository {
	return pg.NewDiscountRepository(db, log)
}

func NewInvoiceRepository(db postgres.IClient, log *logger.Logger) invoice.Repository {
	return pg.NewInvoiceRepository(db, log)
}

func NewPaymentRepository(db postgres.IClient, log *logger.Logger) payment.Repository {
	return pg.NewPaymentRepository(db, log)
}

func NewGatewayTxRepository(db postgres.IClient, log *logger.Logger) gatewaytx.Repository {
	return pg.NewGatewayTxRepository(db, log)
}

func NewWebhookEventRepository(db postgres.IClient, log *logger.Logger) gatewaytx.WebhookEventRepository {
	return pg.NewWebhookEventRepository(db, log)
}

func NewSequenceAllocator(db postgres.IClient, log *logger.Logger) sequence.Allocator {
	return pg.NewSequenceAllocator(db, log)
}

func NewStudentDirectory(db postgres.IClient, log *logger.Logger) student.Directory {
	return pg.NewStudentDirectory(db, log)
}
