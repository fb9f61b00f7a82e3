package fee

import (
	"time"

	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
	"github.com/shopspring/decimal"
)

// Structure represents a billable fee definition for an academic session.
// A structure is unique per (session, fee type, class scope) and is treated
// as immutable once referenced by an issued invoice line.
type Structure struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Code              string          `json:"code"`
	FeeType           types.FeeType   `json:"fee_type"`
	AcademicSessionID string          `json:"academic_session_id"`
	// ClassID scopes the fee to a specific class; nil means session-wide
	ClassID          *string            `json:"class_id,omitempty"`
	Amount           decimal.Decimal    `json:"amount"`
	BillingCycle     types.BillingCycle `json:"billing_cycle"`
	DueDay           int                `json:"due_day"`
	IsOptional       bool               `json:"is_optional"`
	Description      string             `json:"description,omitempty"`
	TaxRate          decimal.Decimal    `json:"tax_rate"`
	LateFeePerDay    decimal.Decimal    `json:"late_fee_per_day"`
	MaxLateFee       decimal.Decimal    `json:"max_late_fee"`
	DiscountEligible bool               `json:"discount_eligible"`

	types.BaseModel
}

// TaxAmount calculates the tax amount for this fee
func (s *Structure) TaxAmount() decimal.Decimal {
	return s.Amount.Mul(s.TaxRate).Div(decimal.NewFromInt(100))
}

// TotalAmount calculates the total amount including tax
func (s *Structure) TotalAmount() decimal.Decimal {
	return s.Amount.Add(s.TaxAmount())
}

// Validate validates the fee structure
func (s *Structure) Validate() error {
	if s.Name == "" {
		return ierr.NewError("invalid fee structure name").
			WithHint("Fee structure name is required").
			Mark(ierr.ErrValidation)
	}
	if err := s.FeeType.Validate(); err != nil {
		return ierr.NewError("invalid fee type").
			WithHint("Fee type is invalid").
			Mark(ierr.ErrValidation)
	}
	if s.AcademicSessionID == "" {
		return ierr.NewError("invalid academic session").
			WithHint("Academic session is required").
			Mark(ierr.ErrValidation)
	}
	if s.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if err := s.BillingCycle.Validate(); err != nil {
		return ierr.NewError("invalid billing cycle").
			WithHint("Billing cycle is invalid").
			Mark(ierr.ErrValidation)
	}
	if s.DueDay < 1 || s.DueDay > 31 {
		return ierr.NewError("invalid due day").
			WithHint("Due day must be between 1 and 31").
			WithReportableDetails(map[string]any{"due_day": s.DueDay}).
			Mark(ierr.ErrValidation)
	}
	if s.TaxRate.IsNegative() || s.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("invalid tax rate").
			WithHint("Tax rate must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	if s.LateFeePerDay.IsNegative() {
		return ierr.NewError("invalid late fee per day").
			WithHint("Late fee per day must be non negative").
			Mark(ierr.ErrValidation)
	}
	if s.MaxLateFee.IsNegative() {
		return ierr.NewError("invalid max late fee").
			WithHint("Maximum late fee must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Discount represents a named fee reduction rule with an applicability window
// and an optional restriction to specific fee structures.
type Discount struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Code         string                 `json:"code"`
	DiscountType types.DiscountType     `json:"discount_type"`
	Category     types.DiscountCategory `json:"category"`
	Value        decimal.Decimal        `json:"value"`
	// MaxDiscountAmount caps percentage discounts; nil means uncapped
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	// ApplicableFeeIDs restricts the discount to specific fee structures;
	// empty means the discount applies to any discount-eligible structure
	ApplicableFeeIDs []string  `json:"applicable_fee_ids,omitempty"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	IsActive         bool      `json:"is_active"`
	Description      string    `json:"description,omitempty"`

	types.BaseModel
}

// Validate validates the discount definition
func (d *Discount) Validate() error {
	if d.Name == "" {
		return ierr.NewError("invalid discount name").
			WithHint("Discount name is required").
			Mark(ierr.ErrValidation)
	}
	if err := d.DiscountType.Validate(); err != nil {
		return ierr.NewError("invalid discount type").
			WithHint("Discount type is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := d.Category.Validate(); err != nil {
		return ierr.NewError("invalid discount category").
			WithHint("Discount category is invalid").
			Mark(ierr.ErrValidation)
	}
	if d.Value.IsNegative() {
		return ierr.NewError("invalid discount value").
			WithHint("Discount value must be non negative").
			Mark(ierr.ErrValidation)
	}
	if d.DiscountType == types.DiscountTypePercentage && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("invalid discount range").
			WithHint("Percentage discount cannot exceed 100").
			WithReportableDetails(map[string]any{"value": d.Value}).
			Mark(ierr.ErrValidation)
	}
	if d.MaxDiscountAmount != nil && d.MaxDiscountAmount.IsNegative() {
		return ierr.NewError("invalid max discount amount").
			WithHint("Maximum discount amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if !d.StartDate.Before(d.EndDate) {
		return ierr.NewError("invalid discount range").
			WithHint("Discount start date must be before end date").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CalculateDiscountAmount calculates the discount for a base amount.
// The result never exceeds the base amount.
func (d *Discount) CalculateDiscountAmount(base decimal.Decimal) decimal.Decimal {
	switch d.DiscountType {
	case types.DiscountTypeFullWaiver:
		return base
	case types.DiscountTypePercentage:
		discount := base.Mul(d.Value).Div(decimal.NewFromInt(100))
		if d.MaxDiscountAmount != nil && discount.GreaterThan(*d.MaxDiscountAmount) {
			discount = *d.MaxDiscountAmount
		}
		return decimal.Min(discount, base)
	case types.DiscountTypeFixedAmount:
		return decimal.Min(d.Value, base)
	default:
		return decimal.Zero
	}
}

// IsApplicable checks if the discount may be applied to a fee structure on the
// given date
func (d *Discount) IsApplicable(structure *Structure, asOf time.Time) bool {
	if !d.IsActive {
		return false
	}
	if structure == nil || !structure.DiscountEligible {
		return false
	}
	day := asOf.Truncate(24 * time.Hour)
	if day.Before(d.StartDate.Truncate(24*time.Hour)) || day.After(d.EndDate.Truncate(24*time.Hour)) {
		return false
	}
	if len(d.ApplicableFeeIDs) == 0 {
		return true
	}
	for _, id := range d.ApplicableFeeIDs {
		if id == structure.ID {
			return true
		}
	}
	return false
}
