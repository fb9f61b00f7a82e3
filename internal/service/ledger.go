package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/invoice"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// LedgerService owns the invoice money math: the balance invariant, the
// status derivation and late fees. Status is always derived from amounts,
// never set directly.
type LedgerService interface {
	// Recompute restores the ledger invariants on an invoice in place
	Recompute(inv *invoice.Invoice)

	// CalculateLateFee previews the late fee an invoice would attract as of
	// the given date without writing anything
	CalculateLateFee(ctx context.Context, invoiceID string, asOf time.Time) (*dto.LateFeePreviewResponse, error)

	// ApplyLateFee adds the accrued late fee to the invoice total. Calling it
	// again on the same day is a no-op.
	ApplyLateFee(ctx context.Context, invoiceID string, asOf time.Time) (*dto.InvoiceResponse, error)

	// MarkPaid is an administrative override that settles the invoice in full
	// without recording a payment, e.g. for balances cleared outside the
	// system
	MarkPaid(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error)
}

type ledgerService struct {
	ServiceParams
}

// NewLedgerService creates a new ledger service
func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{ServiceParams: params}
}

// recomputeLedger enforces balance_due = max(0, total - paid) and derives
// the status from the amounts. Draft and terminal statuses are preserved.
func recomputeLedger(inv *invoice.Invoice) {
	inv.BalanceDue = inv.BalanceRemaining()

	switch inv.InvoiceStatus {
	case types.InvoiceStatusDraft, types.InvoiceStatusCancelled, types.InvoiceStatusRefunded:
		return
	}

	switch {
	case inv.BalanceDue.IsZero() && inv.AmountPaid.IsPositive():
		inv.InvoiceStatus = types.InvoiceStatusPaid
	case inv.AmountPaid.IsPositive():
		inv.InvoiceStatus = types.InvoiceStatusPartial
	default:
		inv.InvoiceStatus = types.InvoiceStatusIssued
	}
}

func (s *ledgerService) Recompute(inv *invoice.Invoice) {
	recomputeLedger(inv)
}

func (s *ledgerService) CalculateLateFee(ctx context.Context, invoiceID string, asOf time.Time) (*dto.LateFeePreviewResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	days := inv.DaysOverdue(asOf)
	lateFee, err := s.accruedLateFee(ctx, inv, days)
	if err != nil {
		return nil, err
	}

	return &dto.LateFeePreviewResponse{
		InvoiceID:   inv.ID,
		AsOf:        asOf,
		DaysOverdue: days,
		LateFee:     lateFee,
	}, nil
}

func (s *ledgerService) ApplyLateFee(ctx context.Context, invoiceID string, asOf time.Time) (*dto.InvoiceResponse, error) {
	var updated *invoice.Invoice
	var changed bool

	operation := func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
			if err != nil {
				return backoff.Permanent(err)
			}
			if inv.InvoiceStatus.IsTerminal() {
				return backoff.Permanent(ierr.NewError("invoice is closed").
					WithHint("Late fees cannot be applied to a closed invoice").
					WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
					Mark(ierr.ErrInvalidOperation))
			}

			days := inv.DaysOverdue(asOf)
			accrued, err := s.accruedLateFee(ctx, inv, days)
			if err != nil {
				return backoff.Permanent(err)
			}

			delta := accrued.Sub(inv.LateFee)
			if !delta.IsPositive() {
				updated = inv
				return nil
			}

			inv.LateFee = accrued
			inv.TotalAmount = inv.TotalAmount.Add(delta)
			recomputeLedger(inv)

			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				if ierr.IsVersionConflict(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			updated = inv
			changed = true
			return nil
		})
	}

	if err := backoff.Retry(operation, ledgerRetryBackoff(ctx)); err != nil {
		return nil, err
	}

	if changed {
		s.publishEvent(ctx, types.EventInvoiceOverdue, dto.NewInvoiceResponse(updated))
	}
	return dto.NewInvoiceResponse(updated), nil
}

func (s *ledgerService) MarkPaid(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	var updated *invoice.Invoice

	operation := func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
			if err != nil {
				return backoff.Permanent(err)
			}
			if inv.InvoiceStatus == types.InvoiceStatusPaid {
				updated = inv
				return nil
			}
			if inv.InvoiceStatus.IsTerminal() || inv.InvoiceStatus == types.InvoiceStatusDraft {
				return backoff.Permanent(ierr.NewError("invoice cannot be settled").
					WithHint("Only issued invoices can be marked paid").
					WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
					Mark(ierr.ErrInvalidOperation))
			}

			inv.AmountPaid = inv.TotalAmount
			recomputeLedger(inv)

			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				if ierr.IsVersionConflict(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			updated = inv
			return nil
		})
	}

	if err := backoff.Retry(operation, ledgerRetryBackoff(ctx)); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, types.EventInvoicePaid, dto.NewInvoiceResponse(updated))
	return dto.NewInvoiceResponse(updated), nil
}

// accruedLateFee sums min(days x rate, cap) over the invoice's fee
// structures. A zero cap means uncapped.
func (s *ledgerService) accruedLateFee(ctx context.Context, inv *invoice.Invoice, days int) (decimal.Decimal, error) {
	if days <= 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, item := range inv.Items {
		structure, err := s.FeeStructureRepo.Get(ctx, item.FeeStructureID)
		if err != nil {
			return decimal.Zero, err
		}
		if !structure.LateFeePerDay.IsPositive() {
			continue
		}

		accrued := structure.LateFeePerDay.Mul(decimal.NewFromInt(int64(days)))
		if structure.MaxLateFee.IsPositive() {
			accrued = decimal.Min(accrued, structure.MaxLateFee)
		}
		total = total.Add(accrued)
	}
	return total, nil
}

// ledgerRetryBackoff bounds optimistic-lock retries on ledger writes
func ledgerRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithContext(b, ctx)
}
