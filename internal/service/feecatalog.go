package service

import (
	"context"
	"time"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/fee"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// FeeCatalogService manages fee structures and discount rules. Structures are
// unique per (session, fee type, class scope); discounts carry their own
// applicability windows.
type FeeCatalogService interface {
	CreateFeeStructure(ctx context.Context, req *dto.CreateFeeStructureRequest) (*dto.FeeStructureResponse, error)
	GetFeeStructure(ctx context.Context, id string) (*dto.FeeStructureResponse, error)
	UpdateFeeStructure(ctx context.Context, id string, req *dto.UpdateFeeStructureRequest) (*dto.FeeStructureResponse, error)
	DeleteFeeStructure(ctx context.Context, id string) error
	ListFeeStructures(ctx context.Context, filter *types.FeeStructureFilter) (*dto.ListFeeStructuresResponse, error)

	CreateDiscount(ctx context.Context, req *dto.CreateDiscountRequest) (*dto.DiscountResponse, error)
	GetDiscount(ctx context.Context, id string) (*dto.DiscountResponse, error)
	UpdateDiscount(ctx context.Context, id string, req *dto.UpdateDiscountRequest) (*dto.DiscountResponse, error)
	DeleteDiscount(ctx context.Context, id string) error
	ListDiscounts(ctx context.Context, filter *types.DiscountFilter) (*dto.ListDiscountsResponse, error)

	// GetApplicableDiscounts returns the active discounts that may be applied
	// to the given fee structure today
	GetApplicableDiscounts(ctx context.Context, feeStructureID string) ([]*dto.DiscountResponse, error)
}

type feeCatalogService struct {
	ServiceParams
}

// NewFeeCatalogService creates a new fee catalog service
func NewFeeCatalogService(params ServiceParams) FeeCatalogService {
	return &feeCatalogService{ServiceParams: params}
}

func (s *feeCatalogService) CreateFeeStructure(ctx context.Context, req *dto.CreateFeeStructureRequest) (*dto.FeeStructureResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	structure := req.ToFeeStructure(ctx)
	if err := structure.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.FeeStructureRepo.ExistsForScope(ctx, structure.AcademicSessionID, structure.FeeType, structure.ClassID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ierr.NewError("duplicate fee structure").
			WithHint("A fee structure already exists for this session, fee type and class").
			WithReportableDetails(map[string]any{
				"academic_session_id": structure.AcademicSessionID,
				"fee_type":            structure.FeeType,
				"class_id":            structure.ClassID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.FeeStructureRepo.Create(ctx, structure); err != nil {
		return nil, err
	}

	s.Logger.Infow("created fee structure",
		"fee_structure_id", structure.ID,
		"fee_type", structure.FeeType,
		"academic_session_id", structure.AcademicSessionID,
	)
	return dto.NewFeeStructureResponse(structure), nil
}

func (s *feeCatalogService) GetFeeStructure(ctx context.Context, id string) (*dto.FeeStructureResponse, error) {
	structure, err := s.FeeStructureRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewFeeStructureResponse(structure), nil
}

func (s *feeCatalogService) UpdateFeeStructure(ctx context.Context, id string, req *dto.UpdateFeeStructureRequest) (*dto.FeeStructureResponse, error) {
	structure, err := s.FeeStructureRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		structure.Name = *req.Name
	}
	if req.Amount != nil {
		structure.Amount = *req.Amount
	}
	if req.DueDay != nil {
		structure.DueDay = *req.DueDay
	}
	if req.IsOptional != nil {
		structure.IsOptional = *req.IsOptional
	}
	if req.Description != nil {
		structure.Description = *req.Description
	}
	if req.TaxRate != nil {
		structure.TaxRate = *req.TaxRate
	}
	if req.LateFeePerDay != nil {
		structure.LateFeePerDay = *req.LateFeePerDay
	}
	if req.MaxLateFee != nil {
		structure.MaxLateFee = *req.MaxLateFee
	}
	if req.DiscountEligible != nil {
		structure.DiscountEligible = *req.DiscountEligible
	}
	structure.Touch(ctx)

	if err := structure.Validate(); err != nil {
		return nil, err
	}
	if err := s.FeeStructureRepo.Update(ctx, structure); err != nil {
		return nil, err
	}
	return dto.NewFeeStructureResponse(structure), nil
}

func (s *feeCatalogService) DeleteFeeStructure(ctx context.Context, id string) error {
	if _, err := s.FeeStructureRepo.Get(ctx, id); err != nil {
		return err
	}
	return s.FeeStructureRepo.Delete(ctx, id)
}

func (s *feeCatalogService) ListFeeStructures(ctx context.Context, filter *types.FeeStructureFilter) (*dto.ListFeeStructuresResponse, error) {
	if filter == nil {
		filter = &types.FeeStructureFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	structures, err := s.FeeStructureRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.FeeStructureRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListFeeStructuresResponse{
		Items: make([]*dto.FeeStructureResponse, 0, len(structures)),
		Total: total,
	}
	for _, structure := range structures {
		resp.Items = append(resp.Items, dto.NewFeeStructureResponse(structure))
	}
	return resp, nil
}

func (s *feeCatalogService) CreateDiscount(ctx context.Context, req *dto.CreateDiscountRequest) (*dto.DiscountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	discount := req.ToDiscount(ctx)
	if err := discount.Validate(); err != nil {
		return nil, err
	}

	// referenced fee structures must exist
	for _, feeID := range discount.ApplicableFeeIDs {
		if _, err := s.FeeStructureRepo.Get(ctx, feeID); err != nil {
			return nil, err
		}
	}

	if err := s.DiscountRepo.Create(ctx, discount); err != nil {
		return nil, err
	}

	s.Logger.Infow("created discount",
		"discount_id", discount.ID,
		"discount_type", discount.DiscountType,
		"category", discount.Category,
	)
	return dto.NewDiscountResponse(discount), nil
}

func (s *feeCatalogService) GetDiscount(ctx context.Context, id string) (*dto.DiscountResponse, error) {
	discount, err := s.DiscountRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewDiscountResponse(discount), nil
}

func (s *feeCatalogService) UpdateDiscount(ctx context.Context, id string, req *dto.UpdateDiscountRequest) (*dto.DiscountResponse, error) {
	discount, err := s.DiscountRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		discount.Name = *req.Name
	}
	if req.Value != nil {
		discount.Value = *req.Value
	}
	if req.MaxDiscountAmount != nil {
		discount.MaxDiscountAmount = req.MaxDiscountAmount
	}
	if req.ApplicableFeeIDs != nil {
		discount.ApplicableFeeIDs = req.ApplicableFeeIDs
	}
	if req.StartDate != nil {
		discount.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		discount.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		discount.IsActive = *req.IsActive
	}
	if req.Description != nil {
		discount.Description = *req.Description
	}
	discount.Touch(ctx)

	if err := discount.Validate(); err != nil {
		return nil, err
	}
	if err := s.DiscountRepo.Update(ctx, discount); err != nil {
		return nil, err
	}
	return dto.NewDiscountResponse(discount), nil
}

func (s *feeCatalogService) DeleteDiscount(ctx context.Context, id string) error {
	if _, err := s.DiscountRepo.Get(ctx, id); err != nil {
		return err
	}
	return s.DiscountRepo.Delete(ctx, id)
}

func (s *feeCatalogService) ListDiscounts(ctx context.Context, filter *types.DiscountFilter) (*dto.ListDiscountsResponse, error) {
	if filter == nil {
		filter = &types.DiscountFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	discounts, err := s.DiscountRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListDiscountsResponse{
		Items: make([]*dto.DiscountResponse, 0, len(discounts)),
		Total: len(discounts),
	}
	for _, discount := range discounts {
		resp.Items = append(resp.Items, dto.NewDiscountResponse(discount))
	}
	return resp, nil
}

func (s *feeCatalogService) GetApplicableDiscounts(ctx context.Context, feeStructureID string) ([]*dto.DiscountResponse, error) {
	structure, err := s.FeeStructureRepo.Get(ctx, feeStructureID)
	if err != nil {
		return nil, err
	}

	discounts, err := s.DiscountRepo.List(ctx, types.NewNoLimitDiscountFilter())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var applicable []*dto.DiscountResponse
	for _, d := range discounts {
		if d.IsApplicable(structure, now) {
			applicable = append(applicable, dto.NewDiscountResponse(d))
		}
	}
	return applicable, nil
}

// resolveDiscounts loads and filters discounts for one fee structure line,
// shared by the invoice builder
func resolveDiscounts(ctx context.Context, s ServiceParams, structure *fee.Structure, discountIDs []string, asOf time.Time) ([]*fee.Discount, error) {
	discounts := make([]*fee.Discount, 0, len(discountIDs))
	for _, id := range discountIDs {
		d, err := s.DiscountRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !d.IsApplicable(structure, asOf) {
			return nil, ierr.NewError("discount not applicable").
				WithHint("The discount cannot be applied to this fee").
				WithReportableDetails(map[string]any{
					"discount_id":      d.ID,
					"fee_structure_id": structure.ID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		discounts = append(discounts, d)
	}
	return discounts, nil
}
