package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/campusledger/campusledger/internal/api/dto"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/testutil"
	"github.com/campusledger/campusledger/internal/types"
)

type FeeCatalogServiceSuite struct {
	testutil.BaseServiceTestSuite
	service FeeCatalogService
}

func TestFeeCatalogService(t *testing.T) {
	suite.Run(t, new(FeeCatalogServiceSuite))
}

func (s *FeeCatalogServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewFeeCatalogService(newTestServiceParams(&s.BaseServiceTestSuite, nil))
}

func (s *FeeCatalogServiceSuite) newTuitionRequest() *dto.CreateFeeStructureRequest {
	return &dto.CreateFeeStructureRequest{
		Name:              "Tuition Fee",
		Code:              "TUI-2026",
		FeeType:           types.FeeTypeTuition,
		AcademicSessionID: "session-2026",
		Amount:            decimal.NewFromInt(1000),
		BillingCycle:      types.BillingCycleMonthly,
		DueDay:            10,
		TaxRate:           decimal.NewFromInt(5),
		LateFeePerDay:     decimal.NewFromInt(5),
		MaxLateFee:        decimal.NewFromInt(50),
		DiscountEligible:  true,
	}
}

func (s *FeeCatalogServiceSuite) TestCreateFeeStructure() {
	resp, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal(types.FeeTypeTuition, resp.FeeType)
	s.True(resp.TotalWithTax.Equal(decimal.NewFromInt(1050)))

	got, err := s.service.GetFeeStructure(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(resp.ID, got.ID)
}

func (s *FeeCatalogServiceSuite) TestCreateFeeStructureDuplicateScope() {
	_, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.NoError(err)

	_, err = s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *FeeCatalogServiceSuite) TestConcurrentCreatesSameScopeAdmitOne() {
	const attempts = 8

	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
			errs <- err
		}()
	}

	created := 0
	for i := 0; i < attempts; i++ {
		err := <-errs
		if err == nil {
			created++
			continue
		}
		s.True(ierr.IsAlreadyExists(err))
	}
	s.Equal(1, created)

	list, err := s.service.ListFeeStructures(s.GetContext(), nil)
	s.NoError(err)
	s.Len(list.Items, 1)
}

func (s *FeeCatalogServiceSuite) TestCreateFeeStructureSameTypeDifferentClass() {
	req := s.newTuitionRequest()
	req.ClassID = lo.ToPtr("class-5a")
	_, err := s.service.CreateFeeStructure(s.GetContext(), req)
	s.NoError(err)

	other := s.newTuitionRequest()
	other.ClassID = lo.ToPtr("class-5b")
	_, err = s.service.CreateFeeStructure(s.GetContext(), other)
	s.NoError(err)
}

func (s *FeeCatalogServiceSuite) TestCreateFeeStructureNegativeAmount() {
	req := s.newTuitionRequest()
	req.Amount = decimal.NewFromInt(-100)
	_, err := s.service.CreateFeeStructure(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *FeeCatalogServiceSuite) TestUpdateFeeStructure() {
	created, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.NoError(err)

	updated, err := s.service.UpdateFeeStructure(s.GetContext(), created.ID, &dto.UpdateFeeStructureRequest{
		Amount:  lo.ToPtr(decimal.NewFromInt(1200)),
		TaxRate: lo.ToPtr(decimal.NewFromInt(10)),
	})
	s.NoError(err)
	s.True(updated.Amount.Equal(decimal.NewFromInt(1200)))
	s.True(updated.TotalWithTax.Equal(decimal.NewFromInt(1320)))
	// untouched fields survive the patch
	s.Equal("Tuition Fee", updated.Name)
	s.Equal(10, updated.DueDay)
}

func (s *FeeCatalogServiceSuite) TestDeleteFeeStructure() {
	created, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.NoError(err)

	s.NoError(s.service.DeleteFeeStructure(s.GetContext(), created.ID))

	_, err = s.service.GetFeeStructure(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *FeeCatalogServiceSuite) TestListFeeStructuresBySession() {
	_, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.NoError(err)

	other := s.newTuitionRequest()
	other.AcademicSessionID = "session-2027"
	other.Code = "TUI-2027"
	_, err = s.service.CreateFeeStructure(s.GetContext(), other)
	s.NoError(err)

	resp, err := s.service.ListFeeStructures(s.GetContext(), &types.FeeStructureFilter{
		QueryFilter:       types.NewDefaultQueryFilter(),
		AcademicSessionID: lo.ToPtr("session-2026"),
	})
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Len(resp.Items, 1)
	s.Equal("session-2026", resp.Items[0].AcademicSessionID)
}

func (s *FeeCatalogServiceSuite) newScholarshipRequest(feeIDs ...string) *dto.CreateDiscountRequest {
	now := s.GetNow()
	return &dto.CreateDiscountRequest{
		Name:             "Merit Scholarship",
		Code:             "MERIT-10",
		DiscountType:     types.DiscountTypePercentage,
		Category:         types.DiscountCategoryScholarship,
		Value:            decimal.NewFromInt(10),
		ApplicableFeeIDs: feeIDs,
		StartDate:        now.AddDate(0, -1, 0),
		EndDate:          now.AddDate(0, 1, 0),
		IsActive:         true,
	}
}

func (s *FeeCatalogServiceSuite) TestCreateDiscount() {
	resp, err := s.service.CreateDiscount(s.GetContext(), s.newScholarshipRequest())
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal(types.DiscountTypePercentage, resp.DiscountType)
}

func (s *FeeCatalogServiceSuite) TestCreateDiscountPercentageOverHundred() {
	req := s.newScholarshipRequest()
	req.Value = decimal.NewFromInt(150)
	_, err := s.service.CreateDiscount(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *FeeCatalogServiceSuite) TestCreateDiscountInvertedWindow() {
	req := s.newScholarshipRequest()
	req.StartDate = s.GetNow().AddDate(0, 1, 0)
	req.EndDate = s.GetNow().AddDate(0, -1, 0)
	_, err := s.service.CreateDiscount(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *FeeCatalogServiceSuite) TestCreateDiscountUnknownFeeStructure() {
	_, err := s.service.CreateDiscount(s.GetContext(), s.newScholarshipRequest("fs_missing"))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *FeeCatalogServiceSuite) TestUpdateDiscountDeactivate() {
	created, err := s.service.CreateDiscount(s.GetContext(), s.newScholarshipRequest())
	s.NoError(err)

	updated, err := s.service.UpdateDiscount(s.GetContext(), created.ID, &dto.UpdateDiscountRequest{
		IsActive: lo.ToPtr(false),
	})
	s.NoError(err)
	s.False(updated.IsActive)
}

func (s *FeeCatalogServiceSuite) TestGetApplicableDiscounts() {
	structure, err := s.service.CreateFeeStructure(s.GetContext(), s.newTuitionRequest())
	s.NoError(err)

	// applies: active, in window, unrestricted
	open, err := s.service.CreateDiscount(s.GetContext(), s.newScholarshipRequest())
	s.NoError(err)

	// applies: restricted to this structure
	restrictedReq := s.newScholarshipRequest(structure.ID)
	restrictedReq.Code = "MERIT-FS"
	restricted, err := s.service.CreateDiscount(s.GetContext(), restrictedReq)
	s.NoError(err)

	// does not apply: inactive
	inactiveReq := s.newScholarshipRequest()
	inactiveReq.Code = "MERIT-OFF"
	inactiveReq.IsActive = false
	_, err = s.service.CreateDiscount(s.GetContext(), inactiveReq)
	s.NoError(err)

	// does not apply: window already closed
	expiredReq := s.newScholarshipRequest()
	expiredReq.Code = "MERIT-OLD"
	expiredReq.StartDate = s.GetNow().AddDate(0, -3, 0)
	expiredReq.EndDate = s.GetNow().AddDate(0, -2, 0)
	_, err = s.service.CreateDiscount(s.GetContext(), expiredReq)
	s.NoError(err)

	applicable, err := s.service.GetApplicableDiscounts(s.GetContext(), structure.ID)
	s.NoError(err)
	s.Len(applicable, 2)

	ids := []string{applicable[0].ID, applicable[1].ID}
	s.Contains(ids, open.ID)
	s.Contains(ids, restricted.ID)
}

func (s *FeeCatalogServiceSuite) TestGetApplicableDiscountsIneligibleStructure() {
	req := s.newTuitionRequest()
	req.DiscountEligible = false
	structure, err := s.service.CreateFeeStructure(s.GetContext(), req)
	s.NoError(err)

	_, err = s.service.CreateDiscount(s.GetContext(), s.newScholarshipRequest())
	s.NoError(err)

	applicable, err := s.service.GetApplicableDiscounts(s.GetContext(), structure.ID)
	s.NoError(err)
	s.Empty(applicable)
}
