package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/domain/fee"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/campusledger/campusledger/internal/validator"
)

// CreateFeeStructureRequest defines a new billable fee for a session
type CreateFeeStructureRequest struct {
	Name              string             `json:"name" validate:"required"`
	Code              string             `json:"code" validate:"required"`
	FeeType           types.FeeType      `json:"fee_type" validate:"required"`
	AcademicSessionID string             `json:"academic_session_id" validate:"required"`
	ClassID           *string            `json:"class_id,omitempty"`
	Amount            decimal.Decimal    `json:"amount" validate:"required"`
	BillingCycle      types.BillingCycle `json:"billing_cycle" validate:"required"`
	DueDay            int                `json:"due_day" validate:"required,min=1,max=31"`
	IsOptional        bool               `json:"is_optional"`
	Description       string             `json:"description,omitempty"`
	TaxRate           decimal.Decimal    `json:"tax_rate"`
	LateFeePerDay     decimal.Decimal    `json:"late_fee_per_day"`
	MaxLateFee        decimal.Decimal    `json:"max_late_fee"`
	DiscountEligible  bool               `json:"discount_eligible"`
}

func (r *CreateFeeStructureRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToFeeStructure converts the request into a domain fee structure
func (r *CreateFeeStructureRequest) ToFeeStructure(ctx context.Context) *fee.Structure {
	return &fee.Structure{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE_STRUCTURE),
		Name:              r.Name,
		Code:              r.Code,
		FeeType:           r.FeeType,
		AcademicSessionID: r.AcademicSessionID,
		ClassID:           r.ClassID,
		Amount:            r.Amount,
		BillingCycle:      r.BillingCycle,
		DueDay:            r.DueDay,
		IsOptional:        r.IsOptional,
		Description:       r.Description,
		TaxRate:           r.TaxRate,
		LateFeePerDay:     r.LateFeePerDay,
		MaxLateFee:        r.MaxLateFee,
		DiscountEligible:  r.DiscountEligible,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}

// UpdateFeeStructureRequest carries the mutable fields of a fee structure
type UpdateFeeStructureRequest struct {
	Name             *string          `json:"name,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	DueDay           *int             `json:"due_day,omitempty"`
	IsOptional       *bool            `json:"is_optional,omitempty"`
	Description      *string          `json:"description,omitempty"`
	TaxRate          *decimal.Decimal `json:"tax_rate,omitempty"`
	LateFeePerDay    *decimal.Decimal `json:"late_fee_per_day,omitempty"`
	MaxLateFee       *decimal.Decimal `json:"max_late_fee,omitempty"`
	DiscountEligible *bool            `json:"discount_eligible,omitempty"`
}

// FeeStructureResponse is the external view of a fee structure
type FeeStructureResponse struct {
	*fee.Structure

	TotalWithTax decimal.Decimal `json:"total_with_tax"`
}

// NewFeeStructureResponse builds the response including derived amounts
func NewFeeStructureResponse(s *fee.Structure) *FeeStructureResponse {
	return &FeeStructureResponse{
		Structure:    s,
		TotalWithTax: s.TotalAmount(),
	}
}

// ListFeeStructuresResponse is a paginated fee structure listing
type ListFeeStructuresResponse struct {
	Items []*FeeStructureResponse `json:"items"`
	Total int                     `json:"total"`
}

// CreateDiscountRequest defines a new fee discount rule
type CreateDiscountRequest struct {
	Name              string                 `json:"name" validate:"required"`
	Code              string                 `json:"code" validate:"required"`
	DiscountType      types.DiscountType     `json:"discount_type" validate:"required"`
	Category          types.DiscountCategory `json:"category" validate:"required"`
	Value             decimal.Decimal        `json:"value"`
	MaxDiscountAmount *decimal.Decimal       `json:"max_discount_amount,omitempty"`
	ApplicableFeeIDs  []string               `json:"applicable_fee_ids,omitempty"`
	StartDate         time.Time              `json:"start_date" validate:"required"`
	EndDate           time.Time              `json:"end_date" validate:"required"`
	IsActive          bool                   `json:"is_active"`
	Description       string                 `json:"description,omitempty"`
}

func (r *CreateDiscountRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ToDiscount converts the request into a domain discount
func (r *CreateDiscountRequest) ToDiscount(ctx context.Context) *fee.Discount {
	return &fee.Discount{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FEE_DISCOUNT),
		Name:              r.Name,
		Code:              r.Code,
		DiscountType:      r.DiscountType,
		Category:          r.Category,
		Value:             r.Value,
		MaxDiscountAmount: r.MaxDiscountAmount,
		ApplicableFeeIDs:  r.ApplicableFeeIDs,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		IsActive:          r.IsActive,
		Description:       r.Description,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}

// UpdateDiscountRequest carries the mutable fields of a discount
type UpdateDiscountRequest struct {
	Name              *string          `json:"name,omitempty"`
	Value             *decimal.Decimal `json:"value,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ApplicableFeeIDs  []string         `json:"applicable_fee_ids,omitempty"`
	StartDate         *time.Time       `json:"start_date,omitempty"`
	EndDate           *time.Time       `json:"end_date,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
	Description       *string          `json:"description,omitempty"`
}

// DiscountResponse is the external view of a discount
type DiscountResponse struct {
	*fee.Discount
}

// NewDiscountResponse builds a discount response
func NewDiscountResponse(d *fee.Discount) *DiscountResponse {
	return &DiscountResponse{Discount: d}
}

// ListDiscountsResponse is a paginated discount listing
type ListDiscountsResponse struct {
	Items []*DiscountResponse `json:"items"`
	Total int                 `json:"total"`
}
