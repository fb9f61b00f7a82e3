package service

import (
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/student"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/testutil"
	"github.com/campusledger/campusledger/internal/types"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PaymentService
	invoices InvoiceService
	catalog  FeeCatalogService
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite, nil)
	s.service = NewPaymentService(params)
	s.invoices = NewInvoiceService(params)
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
func (s *PaymentServiceSuite) issuedInvoice() *dto.InvoiceResponse {
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
		Items: []dto.CreateInvoiceItemRequest{
			{FeeStructureID: structure.ID},
		},
	})
	s.NoError(err)

	issued, err := s.invoices.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	return issued
}

func (s *PaymentServiceSuite) createPayment(invoiceID string, amount int64) *dto.PaymentResponse {
	p, err := s.service.CreatePayment(s.GetContext(), &dto.CreatePaymentRequest{
		InvoiceID:     invoiceID,
		Amount:        decimal.NewFromInt(amount),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)
	return p
}

func (s *PaymentServiceSuite) TestCreatePayment() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)

	s.Equal("RCP-000001", p.PaymentNumber)
	s.Equal(types.PaymentStatusPending, p.PaymentStatus)
	s.Equal(inv.ID, p.InvoiceID)
	s.Equal("std-1", p.StudentID)

	// a pending payment has no ledger effect
	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
}

func (s *PaymentServiceSuite) TestCreatePaymentOnDraftRejected() {
	structure, err := s.catalog.CreateFeeStructure(s.GetContext(), &dto.CreateFeeStructureRequest{
		Name:              "Tuition Fee",
		Code:              "TUI-2026",
		FeeType:           types.FeeTypeTuition,
		AcademicSessionID: "session-2026",
		Amount:            decimal.NewFromInt(1000),
		BillingCycle:      types.BillingCycleMonthly,
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

	_, err = s.service.CreatePayment(s.GetContext(), &dto.CreatePaymentRequest{
		InvoiceID:     draft.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestPartialThenFullPayment() {
	inv := s.issuedInvoice()

	// first payment of 400
	first := s.createPayment(inv.ID, 400)
	completed, err := s.service.CompletePayment(s.GetContext(), first.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, completed.PaymentStatus)
	s.NotNil(completed.CompletedAt)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(400)))
	s.True(got.BalanceDue.Equal(decimal.NewFromInt(650)))
	s.Equal(types.InvoiceStatusPartial, got.InvoiceStatus)

	// second payment settles the remaining 650
	second := s.createPayment(inv.ID, 650)
	_, err = s.service.CompletePayment(s.GetContext(), second.ID)
	s.NoError(err)

	got, err = s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(1050)))
	s.True(got.BalanceDue.IsZero())
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)

	s.Len(s.GetPublisher().EventsByName(types.EventPaymentCompleted), 2)
	s.Len(s.GetPublisher().EventsByName(types.EventInvoicePaid), 1)
}

func (s *PaymentServiceSuite) TestPaymentExceedingBalanceRejected() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 1050)
	_, err := s.service.CompletePayment(s.GetContext(), p.ID)
	s.NoError(err)

	// the invoice is paid in full; even 10 more is over the balance, and
	// the error names the balance rather than the closed invoice
	_, err = s.service.CreatePayment(s.GetContext(), &dto.CreatePaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.ErrorContains(err, "amount exceeds balance")
}

func (s *PaymentServiceSuite) TestCompletePaymentIsIdempotent() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)

	_, err := s.service.CompletePayment(s.GetContext(), p.ID)
	s.NoError(err)
	again, err := s.service.CompletePayment(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, again.PaymentStatus)

	// the amount applied exactly once
	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(400)))
	s.Len(s.GetPublisher().EventsByName(types.EventPaymentCompleted), 1)
}

func (s *PaymentServiceSuite) TestConcurrentCompletionsApplyOnce() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.CompletePayment(s.GetContext(), p.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(400)))
	s.True(got.BalanceDue.Equal(decimal.NewFromInt(650)))
	s.Len(s.GetPublisher().EventsByName(types.EventPaymentCompleted), 1)
}

func (s *PaymentServiceSuite) TestConcurrentDistinctPaymentsSumExactly() {
	inv := s.issuedInvoice()

	const workers = 10
	payments := make([]*dto.PaymentResponse, workers)
	for i := 0; i < workers; i++ {
		payments[i] = s.createPayment(inv.ID, 105)
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i, p := range payments {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.service.CompletePayment(s.GetContext(), id)
		}(i, p.ID)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.Equal(decimal.NewFromInt(1050)))
	s.True(got.BalanceDue.IsZero())
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
	s.Len(s.GetPublisher().EventsByName(types.EventPaymentCompleted), workers)
	s.Len(s.GetPublisher().EventsByName(types.EventInvoicePaid), 1)
}

func (s *PaymentServiceSuite) TestProcessPaymentCompletesInline() {
	inv := s.issuedInvoice()

	p, err := s.service.CreatePayment(s.GetContext(), &dto.CreatePaymentRequest{
		InvoiceID:      inv.ID,
		Amount:         decimal.NewFromInt(1050),
		PaymentMethod:  types.PaymentMethodCash,
		ProcessPayment: true,
	})
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.PaymentStatus)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
}

func (s *PaymentServiceSuite) TestFailPayment() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)

	failed, err := s.service.FailPayment(s.GetContext(), p.ID, "insufficient funds")
	s.NoError(err)
	s.Equal(types.PaymentStatusFailed, failed.PaymentStatus)
	s.NotNil(failed.FailedAt)
	s.Equal("insufficient funds", types.FromNillableString(failed.ErrorMessage))

	// no ledger effect
	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
	s.Equal(types.InvoiceStatusIssued, got.InvoiceStatus)

	// failing twice is a no-op, completing it afterwards is not allowed
	_, err = s.service.FailPayment(s.GetContext(), p.ID, "insufficient funds")
	s.NoError(err)
	_, err = s.service.CompletePayment(s.GetContext(), p.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestCancelPayment() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)

	cancelled, err := s.service.CancelPayment(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCancelled, cancelled.PaymentStatus)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
}

func (s *PaymentServiceSuite) TestRefundPayment() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 1050)
	_, err := s.service.CompletePayment(s.GetContext(), p.ID)
	s.NoError(err)

	refunded, err := s.service.RefundPayment(s.GetContext(), p.ID, &dto.RefundPaymentRequest{
		Reason: "withdrawal",
	})
	s.NoError(err)
	s.Equal(types.PaymentStatusRefunded, refunded.PaymentStatus)
	s.NotNil(refunded.RefundedAt)

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
	s.True(got.BalanceDue.Equal(decimal.NewFromInt(1050)))

	s.Len(s.GetPublisher().EventsByName(types.EventPaymentRefunded), 1)
}

func (s *PaymentServiceSuite) TestRefundExceedingPaymentRejected() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)
	_, err := s.service.CompletePayment(s.GetContext(), p.ID)
	s.NoError(err)

	_, err = s.service.RefundPayment(s.GetContext(), p.ID, &dto.RefundPaymentRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(500)),
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestRefundPendingPaymentRejected() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)

	_, err := s.service.RefundPayment(s.GetContext(), p.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestCancelPartiallyPaidInvoiceRejected() {
	inv := s.issuedInvoice()
	p := s.createPayment(inv.ID, 400)
	_, err := s.service.CompletePayment(s.GetContext(), p.ID)
	s.NoError(err)

	_, err = s.invoices.CancelInvoice(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestListPaymentsByStatus() {
	inv := s.issuedInvoice()
	first := s.createPayment(inv.ID, 400)
	s.createPayment(inv.ID, 200)
	_, err := s.service.CompletePayment(s.GetContext(), first.ID)
	s.NoError(err)

	resp, err := s.service.ListPayments(s.GetContext(), &types.PaymentFilter{
		QueryFilter:   types.NewDefaultQueryFilter(),
		PaymentStatus: lo.ToPtr(types.PaymentStatusCompleted),
	})
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(first.ID, resp.Items[0].ID)
}
