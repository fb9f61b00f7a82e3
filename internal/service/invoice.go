package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/fee"
	"github.com/campusledger/campusledger/internal/domain/invoice"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// InvoiceService builds invoices from the fee catalog and walks them through
// their lifecycle. Drafts are editable; issuing freezes the line items.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)

	// AddItem appends a line to a draft invoice and refreshes the aggregates
	AddItem(ctx context.Context, invoiceID string, req *dto.AddInvoiceItemRequest) (*dto.InvoiceResponse, error)

	// IssueInvoice moves a draft to issued, stamping the issue date
	IssueInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error)

	// CancelInvoice closes an invoice that has received no money
	CancelInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	ServiceParams
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// the student must exist in the directory before billing them
	if _, err := s.StudentDirectory.Get(ctx, req.StudentID); err != nil {
		return nil, err
	}

	number, err := s.Sequences.NextNumber(ctx, types.SequenceTypeInvoice)
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:     number,
		StudentID:         req.StudentID,
		AcademicSessionID: req.AcademicSessionID,
		BillingPeriod:     req.BillingPeriod,
		DueDate:           req.DueDate.UTC(),
		InvoiceStatus:     types.InvoiceStatusDraft,
		Subtotal:          decimal.Zero,
		TotalDiscount:     decimal.Zero,
		TotalTax:          decimal.Zero,
		TotalAmount:       decimal.Zero,
		AmountPaid:        decimal.Zero,
		BalanceDue:        decimal.Zero,
		LateFee:           decimal.Zero,
		Notes:             req.Notes,
		Version:           1,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}

	now := time.Now().UTC()
	for _, itemReq := range req.Items {
		item, err := s.buildItem(ctx, inv.ID, itemReq.FeeStructureID, itemReq.Quantity, itemReq.DiscountIDs, itemReq.Description, now)
		if err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	s.recalculateAggregates(inv)

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"student_id", inv.StudentID,
		"total_amount", inv.TotalAmount,
	)
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.GetByInvoiceNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = &types.InvoiceFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListInvoicesResponse{
		Items: make([]*dto.InvoiceResponse, 0, len(invoices)),
		Total: total,
	}
	for _, inv := range invoices {
		resp.Items = append(resp.Items, dto.NewInvoiceResponse(inv))
	}
	return resp, nil
}

func (s *invoiceService) AddItem(ctx context.Context, invoiceID string, req *dto.AddInvoiceItemRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsEditable() {
			return ierr.NewError("invoice not editable").
				WithHint("Items can only be added to draft invoices").
				WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
				Mark(ierr.ErrInvalidOperation)
		}

		item, err := s.buildItem(ctx, inv.ID, req.FeeStructureID, req.Quantity, req.DiscountIDs, req.Description, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.InvoiceRepo.AddItem(ctx, item); err != nil {
			return err
		}

		inv.Items = append(inv.Items, item)
		s.recalculateAggregates(inv)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(updated), nil
}

func (s *invoiceService) IssueInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	var updated *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.InvoiceStatus != types.InvoiceStatusDraft {
			return ierr.NewError("invoice already issued").
				WithHint("Only draft invoices can be issued").
				WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
				Mark(ierr.ErrInvalidOperation)
		}
		if len(inv.Items) == 0 {
			return ierr.NewError("empty invoice").
				WithHint("An invoice needs at least one item before issuing").
				Mark(ierr.ErrInvalidOperation)
		}

		now := time.Now().UTC()
		inv.IssueDate = &now
		inv.InvoiceStatus = types.InvoiceStatusIssued
		recomputeLedger(inv)

		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, types.EventInvoiceIssued, dto.NewInvoiceResponse(updated))
	s.Logger.Infow("issued invoice", "invoice_id", updated.ID, "invoice_number", updated.InvoiceNumber)
	return dto.NewInvoiceResponse(updated), nil
}

func (s *invoiceService) CancelInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	var updated *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.InvoiceStatus.IsTerminal() {
			return ierr.NewError("invoice already closed").
				WithHint("The invoice is already in a terminal state").
				WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
				Mark(ierr.ErrInvalidOperation)
		}
		if inv.AmountPaid.IsPositive() {
			return ierr.NewError("cannot cancel partially paid invoice").
				WithHint("Refund the received payments before cancelling").
				WithReportableDetails(map[string]any{"amount_paid": inv.AmountPaid}).
				Mark(ierr.ErrInvalidOperation)
		}

		inv.InvoiceStatus = types.InvoiceStatusCancelled
		inv.BalanceDue = decimal.Zero

		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, types.EventInvoiceCancelled, dto.NewInvoiceResponse(updated))
	s.Logger.Infow("cancelled invoice", "invoice_id", updated.ID)
	return dto.NewInvoiceResponse(updated), nil
}

// buildItem prices one line from its fee structure and resolved discounts
func (s *invoiceService) buildItem(ctx context.Context, invoiceID, feeStructureID string, quantity int, discountIDs []string, description string, asOf time.Time) (*invoice.Item, error) {
	structure, err := s.FeeStructureRepo.Get(ctx, feeStructureID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}

	discounts, err := resolveDiscounts(ctx, s.ServiceParams, structure, discountIDs, asOf)
	if err != nil {
		return nil, err
	}

	item := &invoice.Item{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM),
		InvoiceID:      invoiceID,
		FeeStructureID: structure.ID,
		Quantity:       quantity,
		UnitPrice:      structure.Amount,
		TaxRate:        structure.TaxRate,
		DiscountAmount: decimal.Zero,
		Description:    description,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if item.Description == "" {
		item.Description = structure.Name
	}

	item.DiscountAmount = applyDiscounts(item.BaseAmount(), discounts)
	item.LineTotal = item.ComputeLineTotal()

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// applyDiscounts stacks discounts sequentially against the shrinking base so
// the combined reduction never exceeds the base amount
func applyDiscounts(base decimal.Decimal, discounts []*fee.Discount) decimal.Decimal {
	remaining := base
	total := decimal.Zero
	for _, d := range discounts {
		amount := d.CalculateDiscountAmount(remaining)
		total = total.Add(amount)
		remaining = remaining.Sub(amount)
		if !remaining.IsPositive() {
			break
		}
	}
	return total
}

// recalculateAggregates rebuilds the invoice totals from its line items
func (s *invoiceService) recalculateAggregates(inv *invoice.Invoice) {
	subtotal := decimal.Zero
	totalDiscount := decimal.Zero
	totalTax := decimal.Zero
	totalAmount := decimal.Zero

	for _, item := range inv.Items {
		subtotal = subtotal.Add(item.BaseAmount())
		totalDiscount = totalDiscount.Add(item.DiscountAmount)
		totalTax = totalTax.Add(item.TaxAmount())
		totalAmount = totalAmount.Add(item.LineTotal)
	}

	inv.Subtotal = subtotal
	inv.TotalDiscount = totalDiscount
	inv.TotalTax = totalTax
	inv.TotalAmount = totalAmount.Add(inv.LateFee)
	recomputeLedger(inv)
}
