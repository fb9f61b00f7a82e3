package service

import (
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

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
	catalog FeeCatalogService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite, nil)
	s.service = NewInvoiceService(params)
	s.catalog = NewFeeCatalogService(params)
	s.seedStudent("std-1")
}

func (s *InvoiceServiceSuite) seedStudent(id string) {
	err := s.GetStores().StudentDirectory.(*testutil.InMemoryStudentStore).Seed(s.GetContext(), &student.Student{
		ID:        id,
		FullName:  "Ada Obi",
		Email:     "ada@example.com",
		ClassID:   "class-5a",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

// createStructure registers a tuition fee of 1000 with 5% tax
func (s *InvoiceServiceSuite) createStructure() *dto.FeeStructureResponse {
	resp, err := s.catalog.CreateFeeStructure(s.GetContext(), &dto.CreateFeeStructureRequest{
		Name:              "Tuition Fee",
		Code:              "TUI-2026",
		FeeType:           types.FeeTypeTuition,
		AcademicSessionID: "session-2026",
		Amount:            decimal.NewFromInt(1000),
		BillingCycle:      types.BillingCycleMonthly,
		DueDay:            10,
		TaxRate:           decimal.NewFromInt(5),
		DiscountEligible:  true,
	})
	s.NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) newInvoiceRequest(feeStructureID string, discountIDs ...string) *dto.CreateInvoiceRequest {
	return &dto.CreateInvoiceRequest{
		StudentID:         "std-1",
		AcademicSessionID: "session-2026",
		BillingPeriod:     "2026-09",
		DueDate:           s.GetNow().AddDate(0, 0, 14),
		Items: []dto.CreateInvoiceItemRequest{
			{FeeStructureID: feeStructureID, DiscountIDs: discountIDs},
		},
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	structure := s.createStructure()

	resp, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	// 1000 base + 5% tax
	s.Equal("INV-000001", resp.InvoiceNumber)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Len(resp.Items, 1)
	s.True(resp.Items[0].LineTotal.Equal(decimal.NewFromInt(1050)))
	s.True(resp.Subtotal.Equal(decimal.NewFromInt(1000)))
	s.True(resp.TotalTax.Equal(decimal.NewFromInt(50)))
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(1050)))
	s.True(resp.AmountPaid.IsZero())
	s.True(resp.BalanceDue.Equal(decimal.NewFromInt(1050)))
	s.Equal(1, resp.Version)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceUnknownStudent() {
	structure := s.createStructure()
	req := s.newInvoiceRequest(structure.ID)
	req.StudentID = "std-missing"

	_, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceNumbersAreSequential() {
	structure := s.createStructure()

	first, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)
	second, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	s.Equal("INV-000001", first.InvoiceNumber)
	s.Equal("INV-000002", second.InvoiceNumber)

	got, err := s.service.GetInvoiceByNumber(s.GetContext(), second.InvoiceNumber)
	s.NoError(err)
	s.Equal(second.ID, got.ID)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceWithPercentageDiscount() {
	structure := s.createStructure()
	discount, err := s.catalog.CreateDiscount(s.GetContext(), &dto.CreateDiscountRequest{
		Name:         "Merit Scholarship",
		Code:         "MERIT-10",
		DiscountType: types.DiscountTypePercentage,
		Category:     types.DiscountCategoryScholarship,
		Value:        decimal.NewFromInt(10),
		StartDate:    s.GetNow().AddDate(0, -1, 0),
		EndDate:      s.GetNow().AddDate(0, 1, 0),
		IsActive:     true,
	})
	s.NoError(err)

	resp, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID, discount.ID))
	s.NoError(err)

	// 10% off the 1000 base; tax still charged on the full base
	s.True(resp.Items[0].DiscountAmount.Equal(decimal.NewFromInt(100)))
	s.True(resp.Items[0].LineTotal.Equal(decimal.NewFromInt(950)))
	s.True(resp.TotalDiscount.Equal(decimal.NewFromInt(100)))
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(950)))
}

func (s *InvoiceServiceSuite) TestPercentageDiscountCappedAtMax() {
	structure := s.createStructure()
	discount, err := s.catalog.CreateDiscount(s.GetContext(), &dto.CreateDiscountRequest{
		Name:              "Half Tuition Scholarship",
		Code:              "HALF-CAP",
		DiscountType:      types.DiscountTypePercentage,
		Category:          types.DiscountCategoryScholarship,
		Value:             decimal.NewFromInt(50),
		MaxDiscountAmount: lo.ToPtr(decimal.NewFromInt(300)),
		StartDate:         s.GetNow().AddDate(0, -1, 0),
		EndDate:           s.GetNow().AddDate(0, 1, 0),
		IsActive:          true,
	})
	s.NoError(err)

	resp, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID, discount.ID))
	s.NoError(err)

	// 50% of 1000 would be 500; the cap holds it at 300
	s.True(resp.Items[0].DiscountAmount.Equal(decimal.NewFromInt(300)))
	s.True(resp.Items[0].LineTotal.Equal(decimal.NewFromInt(750)))
	s.True(resp.TotalDiscount.Equal(decimal.NewFromInt(300)))
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(750)))
}

func (s *InvoiceServiceSuite) TestFullWaiverLeavesOnlyTax() {
	structure := s.createStructure()
	waiver, err := s.catalog.CreateDiscount(s.GetContext(), &dto.CreateDiscountRequest{
		Name:         "Staff Child Waiver",
		Code:         "STAFF-FULL",
		DiscountType: types.DiscountTypeFullWaiver,
		Category:     types.DiscountCategoryStaff,
		StartDate:    s.GetNow().AddDate(0, -1, 0),
		EndDate:      s.GetNow().AddDate(0, 1, 0),
		IsActive:     true,
	})
	s.NoError(err)
	extra, err := s.catalog.CreateDiscount(s.GetContext(), &dto.CreateDiscountRequest{
		Name:         "Sibling Discount",
		Code:         "SIB-200",
		DiscountType: types.DiscountTypeFixedAmount,
		Category:     types.DiscountCategorySibling,
		Value:        decimal.NewFromInt(200),
		StartDate:    s.GetNow().AddDate(0, -1, 0),
		EndDate:      s.GetNow().AddDate(0, 1, 0),
		IsActive:     true,
	})
	s.NoError(err)

	// the waiver consumes the whole base, so the fixed discount has
	// nothing left to reduce and the tax portion survives
	resp, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID, waiver.ID, extra.ID))
	s.NoError(err)

	s.True(resp.Items[0].DiscountAmount.Equal(decimal.NewFromInt(1000)))
	s.True(resp.Items[0].LineTotal.Equal(decimal.NewFromInt(50)))
	s.False(resp.Items[0].LineTotal.IsNegative())
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(50)))
	s.True(resp.BalanceDue.Equal(decimal.NewFromInt(50)))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceInactiveDiscountRejected() {
	structure := s.createStructure()
	discount, err := s.catalog.CreateDiscount(s.GetContext(), &dto.CreateDiscountRequest{
		Name:         "Closed Scholarship",
		Code:         "CLOSED",
		DiscountType: types.DiscountTypePercentage,
		Category:     types.DiscountCategoryScholarship,
		Value:        decimal.NewFromInt(10),
		StartDate:    s.GetNow().AddDate(0, -1, 0),
		EndDate:      s.GetNow().AddDate(0, 1, 0),
		IsActive:     false,
	})
	s.NoError(err)

	_, err = s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID, discount.ID))
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestAddItemToDraft() {
	structure := s.createStructure()
	inv, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	updated, err := s.service.AddItem(s.GetContext(), inv.ID, &dto.AddInvoiceItemRequest{
		FeeStructureID: structure.ID,
		Quantity:       2,
		Description:    "Second term tuition",
	})
	s.NoError(err)
	s.Len(updated.Items, 2)
	// one unit plus two units of 1050 gross
	s.True(updated.TotalAmount.Equal(decimal.NewFromInt(3150)))
	s.True(updated.BalanceDue.Equal(decimal.NewFromInt(3150)))
}

func (s *InvoiceServiceSuite) TestAddItemToIssuedRejected() {
	structure := s.createStructure()
	inv, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)
	_, err = s.service.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	_, err = s.service.AddItem(s.GetContext(), inv.ID, &dto.AddInvoiceItemRequest{
		FeeStructureID: structure.ID,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestIssueInvoice() {
	structure := s.createStructure()
	inv, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	issued, err := s.service.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusIssued, issued.InvoiceStatus)
	s.NotNil(issued.IssueDate)
	s.True(issued.BalanceDue.Equal(decimal.NewFromInt(1050)))

	events := s.GetPublisher().EventsByName(types.EventInvoiceIssued)
	s.Len(events, 1)
}

func (s *InvoiceServiceSuite) TestIssueInvoiceTwiceRejected() {
	structure := s.createStructure()
	inv, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	_, err = s.service.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	_, err = s.service.IssueInvoice(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestCancelInvoice() {
	structure := s.createStructure()
	inv, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)
	_, err = s.service.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	cancelled, err := s.service.CancelInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, cancelled.InvoiceStatus)
	s.True(cancelled.BalanceDue.IsZero())

	events := s.GetPublisher().EventsByName(types.EventInvoiceCancelled)
	s.Len(events, 1)
}

func (s *InvoiceServiceSuite) TestCancelInvoiceTwiceRejected() {
	structure := s.createStructure()
	inv, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	_, err = s.service.CancelInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	_, err = s.service.CancelInvoice(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestListInvoicesByStudent() {
	s.seedStudent("std-2")
	structure := s.createStructure()

	_, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest(structure.ID))
	s.NoError(err)

	other := s.newInvoiceRequest(structure.ID)
	other.StudentID = "std-2"
	_, err = s.service.CreateInvoice(s.GetContext(), other)
	s.NoError(err)

	resp, err := s.service.ListInvoices(s.GetContext(), &types.InvoiceFilter{
		QueryFilter: types.NewDefaultQueryFilter(),
		StudentID:   lo.ToPtr("std-1"),
	})
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal("std-1", resp.Items[0].StudentID)
}

func (s *InvoiceServiceSuite) TestOverdueIsReadTime() {
	structure := s.createStructure()
	req := s.newInvoiceRequest(structure.ID)
	req.DueDate = s.GetNow().AddDate(0, 0, -3)

	inv, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)

	// drafts are never overdue regardless of the due date
	s.False(inv.Overdue)

	issued, err := s.service.IssueInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusIssued, issued.InvoiceStatus)
	s.True(issued.Overdue)
	s.Equal(3, issued.DaysOverdue)
}
