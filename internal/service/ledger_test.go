package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/invoice"
	"github.com/campusledger/campusledger/internal/domain/student"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/testutil"
	"github.com/campusledger/campusledger/internal/types"
)

type LedgerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  LedgerService
	invoices InvoiceService
	payments PaymentService
	catalog  FeeCatalogService
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite, nil)
	s.service = NewLedgerService(params)
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

// overdueInvoice issues an invoice of 1000 that went due daysAgo days ago,
// billed on a structure charging 5 per day late, capped at 50
func (s *LedgerServiceSuite) overdueInvoice(daysAgo int) *dto.InvoiceResponse {
	structure, err := s.catalog.CreateFeeStructure(s.GetContext(), &dto.CreateFeeStructureRequest{
		Name:              "Tuition Fee",
		Code:              "TUI-2026",
		FeeType:           types.FeeTypeTuition,
		AcademicSessionID: "session-2026",
		Amount:            decimal.NewFromInt(1000),
		BillingCycle:      types.BillingCycleMonthly,
		DueDay:            10,
		LateFeePerDay:     decimal.NewFromInt(5),
		MaxLateFee:        decimal.NewFromInt(50),
	})
	s.NoError(err)

	inv, err := s.invoices.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		StudentID:         "std-1",
		AcademicSessionID: "session-2026",
		BillingPeriod:     "2026-09",
		DueDate:           s.GetNow().AddDate(0, 0, -daysAgo),
		Items:             []dto.CreateInvoiceItemRequest{{FeeStructureID: structure.ID}},
	})
	s.NoError(err)

	issued, err := s.invoices.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	return issued
}

func (s *LedgerServiceSuite) TestRecomputeDerivesStatusFromAmounts() {
	inv := &invoice.Invoice{
		InvoiceStatus: types.InvoiceStatusIssued,
		TotalAmount:   decimal.NewFromInt(1000),
		AmountPaid:    decimal.Zero,
	}

	s.service.Recompute(inv)
	s.Equal(types.InvoiceStatusIssued, inv.InvoiceStatus)
	s.True(inv.BalanceDue.Equal(decimal.NewFromInt(1000)))

	inv.AmountPaid = decimal.NewFromInt(400)
	s.service.Recompute(inv)
	s.Equal(types.InvoiceStatusPartial, inv.InvoiceStatus)
	s.True(inv.BalanceDue.Equal(decimal.NewFromInt(600)))

	inv.AmountPaid = decimal.NewFromInt(1000)
	s.service.Recompute(inv)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.True(inv.BalanceDue.IsZero())
}

func (s *LedgerServiceSuite) TestRecomputeFloorsBalanceAtZero() {
	inv := &invoice.Invoice{
		InvoiceStatus: types.InvoiceStatusIssued,
		TotalAmount:   decimal.NewFromInt(1000),
		AmountPaid:    decimal.NewFromInt(1200),
	}
	s.service.Recompute(inv)
	s.True(inv.BalanceDue.IsZero())
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
}

func (s *LedgerServiceSuite) TestRecomputePreservesTerminalStatuses() {
	inv := &invoice.Invoice{
		InvoiceStatus: types.InvoiceStatusCancelled,
		TotalAmount:   decimal.NewFromInt(1000),
	}
	s.service.Recompute(inv)
	s.Equal(types.InvoiceStatusCancelled, inv.InvoiceStatus)
}

func (s *LedgerServiceSuite) TestCalculateLateFeeIsCapped() {
	// 20 days at 5 per day would be 100; the cap holds it at 50
	inv := s.overdueInvoice(20)

	preview, err := s.service.CalculateLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)
	s.Equal(20, preview.DaysOverdue)
	s.True(preview.LateFee.Equal(decimal.NewFromInt(50)))
}

func (s *LedgerServiceSuite) TestCalculateLateFeeBelowCap() {
	inv := s.overdueInvoice(4)

	preview, err := s.service.CalculateLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)
	s.Equal(4, preview.DaysOverdue)
	s.True(preview.LateFee.Equal(decimal.NewFromInt(20)))
}

func (s *LedgerServiceSuite) TestCalculateLateFeeNotOverdue() {
	inv := s.overdueInvoice(0)

	preview, err := s.service.CalculateLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)
	s.Equal(0, preview.DaysOverdue)
	s.True(preview.LateFee.IsZero())
}

func (s *LedgerServiceSuite) TestApplyLateFee() {
	inv := s.overdueInvoice(4)

	updated, err := s.service.ApplyLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)
	s.True(updated.LateFee.Equal(decimal.NewFromInt(20)))
	s.True(updated.TotalAmount.Equal(decimal.NewFromInt(1020)))
	s.True(updated.BalanceDue.Equal(decimal.NewFromInt(1020)))
}

func (s *LedgerServiceSuite) TestApplyLateFeeSameDayIsNoop() {
	inv := s.overdueInvoice(4)

	_, err := s.service.ApplyLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)
	again, err := s.service.ApplyLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)

	s.True(again.LateFee.Equal(decimal.NewFromInt(20)))
	s.True(again.TotalAmount.Equal(decimal.NewFromInt(1020)))
}

func (s *LedgerServiceSuite) TestApplyLateFeeAccruesOnlyTheDelta() {
	inv := s.overdueInvoice(4)

	_, err := s.service.ApplyLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.NoError(err)

	// two more days later only the difference lands on the total
	later, err := s.service.ApplyLateFee(s.GetContext(), inv.ID, s.GetNow().AddDate(0, 0, 2))
	s.NoError(err)
	s.True(later.LateFee.Equal(decimal.NewFromInt(30)))
	s.True(later.TotalAmount.Equal(decimal.NewFromInt(1030)))
}

func (s *LedgerServiceSuite) TestMarkPaidSettlesWithoutPayment() {
	inv := s.overdueInvoice(0)

	settled, err := s.service.MarkPaid(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, settled.InvoiceStatus)
	s.True(settled.BalanceDue.IsZero())
	s.True(settled.AmountPaid.Equal(settled.TotalAmount))

	payments, err := s.payments.ListPayments(s.GetContext(), nil)
	s.NoError(err)
	s.Empty(payments.Items)

	// settling again is a no-op
	again, err := s.service.MarkPaid(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, again.InvoiceStatus)
}

func (s *LedgerServiceSuite) TestMarkPaidRejectsDraft() {
	structure, err := s.catalog.CreateFeeStructure(s.GetContext(), &dto.CreateFeeStructureRequest{
		Name:              "Exam Fee",
		Code:              "EXM-2026",
		FeeType:           types.FeeTypeExamination,
		AcademicSessionID: "session-2026",
		Amount:            decimal.NewFromInt(200),
		BillingCycle:      types.BillingCycleOneTime,
		DueDay:            10,
	})
	s.NoError(err)

	draft, err := s.invoices.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		StudentID:         "std-1",
		AcademicSessionID: "session-2026",
		BillingPeriod:     "2026-09",
		DueDate:           s.GetNow().AddDate(0, 0, 14),
		Items:             []dto.CreateInvoiceItemRequest{{FeeStructureID: structure.ID}},
	})
	s.NoError(err)

	_, err = s.service.MarkPaid(s.GetContext(), draft.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *LedgerServiceSuite) TestApplyLateFeeOnPaidInvoiceRejected() {
	inv := s.overdueInvoice(4)
	p, err := s.payments.CreatePayment(s.GetContext(), &dto.CreatePaymentRequest{
		InvoiceID:      inv.ID,
		Amount:         decimal.NewFromInt(1000),
		PaymentMethod:  types.PaymentMethodCash,
		ProcessPayment: true,
	})
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.PaymentStatus)

	_, err = s.service.ApplyLateFee(s.GetContext(), inv.ID, s.GetNow())
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
