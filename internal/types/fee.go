package types

import (
	"fmt"

	"github.com/samber/lo"
)

// FeeType represents the category of a billable fee
type FeeType string

const (
	FeeTypeTuition     FeeType = "tuition"
	FeeTypeTransport   FeeType = "transport"
	FeeTypeHostel      FeeType = "hostel"
	FeeTypeLibrary     FeeType = "library"
	FeeTypeLaboratory  FeeType = "laboratory"
	FeeTypeExamination FeeType = "examination"
	FeeTypeSports      FeeType = "sports"
	FeeTypeDevelopment FeeType = "development"
	FeeTypeOther       FeeType = "other"
)

func (t FeeType) String() string {
	return string(t)
}

func (t FeeType) Validate() error {
	allowed := []FeeType{
		FeeTypeTuition,
		FeeTypeTransport,
		FeeTypeHostel,
		FeeTypeLibrary,
		FeeTypeLaboratory,
		FeeTypeExamination,
		FeeTypeSports,
		FeeTypeDevelopment,
		FeeTypeOther,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid fee type: %s", t)
	}
	return nil
}

// BillingCycle represents how often a fee structure is billed
type BillingCycle string

const (
	BillingCycleMonthly    BillingCycle = "monthly"
	BillingCycleQuarterly  BillingCycle = "quarterly"
	BillingCycleHalfYearly BillingCycle = "half_yearly"
	BillingCycleYearly     BillingCycle = "yearly"
	BillingCycleOneTime    BillingCycle = "one_time"
)

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) Validate() error {
	allowed := []BillingCycle{
		BillingCycleMonthly,
		BillingCycleQuarterly,
		BillingCycleHalfYearly,
		BillingCycleYearly,
		BillingCycleOneTime,
	}
	if !lo.Contains(allowed, c) {
		return fmt.Errorf("invalid billing cycle: %s", c)
	}
	return nil
}

// DiscountType represents how a fee discount is computed
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	DiscountTypeFullWaiver  DiscountType = "full_waiver"
)

func (t DiscountType) String() string {
	return string(t)
}

func (t DiscountType) Validate() error {
	allowed := []DiscountType{
		DiscountTypePercentage,
		DiscountTypeFixedAmount,
		DiscountTypeFullWaiver,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid discount type: %s", t)
	}
	return nil
}

// DiscountCategory represents why a fee discount is granted
type DiscountCategory string

const (
	DiscountCategoryScholarship  DiscountCategory = "scholarship"
	DiscountCategorySibling      DiscountCategory = "sibling"
	DiscountCategoryEarlyPayment DiscountCategory = "early_payment"
	DiscountCategoryStaff        DiscountCategory = "staff"
	DiscountCategorySpecialNeeds DiscountCategory = "special_needs"
	DiscountCategoryOther        DiscountCategory = "other"
)

func (c DiscountCategory) String() string {
	return string(c)
}

func (c DiscountCategory) Validate() error {
	allowed := []DiscountCategory{
		DiscountCategoryScholarship,
		DiscountCategorySibling,
		DiscountCategoryEarlyPayment,
		DiscountCategoryStaff,
		DiscountCategorySpecialNeeds,
		DiscountCategoryOther,
	}
	if !lo.Contains(allowed, c) {
		return fmt.Errorf("invalid discount category: %s", c)
	}
	return nil
}

// FeeStructureFilter represents the filter for listing fee structures
type FeeStructureFilter struct {
	*QueryFilter

	AcademicSessionID *string  `form:"academic_session_id"`
	FeeType           *FeeType `form:"fee_type"`
	ClassID           *string  `form:"class_id"`
	BillingCycle      *string  `form:"billing_cycle"`
}

// NewNoLimitFeeStructureFilter creates a new fee structure filter with no limit
func NewNoLimitFeeStructureFilter() *FeeStructureFilter {
	return &FeeStructureFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// DiscountFilter represents the filter for listing fee discounts
type DiscountFilter struct {
	*QueryFilter

	Category   *DiscountCategory `form:"category"`
	ActiveOnly bool              `form:"active_only"`
}

// NewNoLimitDiscountFilter creates a new discount filter with no limit
func NewNoLimitDiscountFilter() *DiscountFilter {
	return &DiscountFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}
