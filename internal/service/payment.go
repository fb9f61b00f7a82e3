package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/payment"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/types"
)

// PaymentService records payments and applies exactly one completion of each
// to the invoice ledger. Completion is guarded by a conditional status
// transition, so concurrent completions of the same payment apply once.
type PaymentService interface {
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)

	// CompletePayment applies a pending payment to the invoice ledger.
	// Completing an already completed payment is a no-op.
	CompletePayment(ctx context.Context, id string) (*dto.PaymentResponse, error)

	// FailPayment marks a pending payment failed with no ledger effect
	FailPayment(ctx context.Context, id string, reason string) (*dto.PaymentResponse, error)

	// CancelPayment voids a pending payment with no ledger effect
	CancelPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)

	// RefundPayment reverses a completed payment, restoring the invoice
	// balance by the refunded amount
	RefundPayment(ctx context.Context, id string, req *dto.RefundPaymentRequest) (*dto.PaymentResponse, error)
}

type paymentService struct {
	ServiceParams
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus == types.InvoiceStatusDraft {
		return nil, ierr.NewError("invoice not issued").
			WithHint("Payments can only be recorded against issued invoices").
			Mark(ierr.ErrInvalidOperation)
	}
	// balance first so paying a settled invoice reports the zero balance
	// rather than a generic closed-invoice error
	if req.Amount.GreaterThan(inv.BalanceDue) {
		return nil, ierr.NewError("amount exceeds balance").
			WithHint("Payment amount cannot exceed the outstanding balance").
			WithReportableDetails(map[string]any{
				"amount":      req.Amount,
				"balance_due": inv.BalanceDue,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if inv.InvoiceStatus.IsTerminal() {
		return nil, ierr.NewError("invoice is closed").
			WithHint("The invoice no longer accepts payments").
			WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	number, err := s.Sequences.NextNumber(ctx, types.SequenceTypeReceipt)
	if err != nil {
		return nil, err
	}

	paymentDate := time.Now().UTC()
	if req.PaymentDate != nil {
		paymentDate = req.PaymentDate.UTC()
	}

	p := &payment.Payment{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		PaymentNumber: number,
		InvoiceID:     inv.ID,
		StudentID:     inv.StudentID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   paymentDate,
		RecordedBy:    types.GetUserID(ctx),
		PaymentStatus: types.PaymentStatusPending,
		CustomerEmail: req.CustomerEmail,
		Metadata:      req.Metadata,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"amount", p.Amount,
		"payment_method", p.PaymentMethod,
	)

	if req.ProcessPayment {
		return s.CompletePayment(ctx, p.ID)
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = &types.PaymentFilter{QueryFilter: types.NewDefaultQueryFilter()}
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListPaymentsResponse{
		Items: make([]*dto.PaymentResponse, 0, len(payments)),
		Total: total,
	}
	for _, p := range payments {
		resp.Items = append(resp.Items, dto.NewPaymentResponse(p))
	}
	return resp, nil
}

func (s *paymentService) CompletePayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	var result *payment.Payment
	var invoicePaid bool
	var applied bool

	operation := func() error {
		applied = false
		invoicePaid = false

		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			p, err := s.PaymentRepo.Get(ctx, id)
			if err != nil {
				return backoff.Permanent(err)
			}

			// only the caller that wins this transition applies the amount;
			// everyone else observes the already-final record
			won, err := s.PaymentRepo.TransitionStatus(ctx, p.ID, types.PaymentStatusPending, types.PaymentStatusCompleted)
			if err != nil {
				return backoff.Permanent(err)
			}
			if !won {
				// re-read: a concurrent caller may have finished it between
				// our read and the transition attempt
				current, err := s.PaymentRepo.Get(ctx, id)
				if err != nil {
					return backoff.Permanent(err)
				}
				if current.PaymentStatus == types.PaymentStatusCompleted {
					result = current
					return nil
				}
				return backoff.Permanent(ierr.NewError("payment not pending").
					WithHint("Only pending payments can be completed").
					WithReportableDetails(map[string]any{"payment_status": current.PaymentStatus}).
					Mark(ierr.ErrInvalidOperation))
			}

			inv, err := s.InvoiceRepo.GetForUpdate(ctx, p.InvoiceID)
			if err != nil {
				return backoff.Permanent(err)
			}

			inv.AmountPaid = inv.AmountPaid.Add(p.Amount)
			recomputeLedger(inv)
			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				if ierr.IsVersionConflict(err) {
					return err
				}
				return backoff.Permanent(err)
			}

			now := time.Now().UTC()
			p.PaymentStatus = types.PaymentStatusCompleted
			p.CompletedAt = &now
			if err := s.PaymentRepo.Update(ctx, p); err != nil {
				return backoff.Permanent(err)
			}

			result = p
			applied = true
			invoicePaid = inv.InvoiceStatus == types.InvoiceStatusPaid
			return nil
		})
	}

	if err := backoff.Retry(operation, ledgerRetryBackoff(ctx)); err != nil {
		return nil, err
	}

	if applied {
		s.publishEvent(ctx, types.EventPaymentCompleted, dto.NewPaymentResponse(result))
		if invoicePaid {
			if inv, err := s.InvoiceRepo.Get(ctx, result.InvoiceID); err == nil {
				s.publishEvent(ctx, types.EventInvoicePaid, dto.NewInvoiceResponse(inv))
			}
		}
		s.Logger.Infow("completed payment",
			"payment_id", result.ID,
			"invoice_id", result.InvoiceID,
			"amount", result.Amount,
		)
	}
	return dto.NewPaymentResponse(result), nil
}

func (s *paymentService) FailPayment(ctx context.Context, id string, reason string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	won, err := s.PaymentRepo.TransitionStatus(ctx, p.ID, types.PaymentStatusPending, types.PaymentStatusFailed)
	if err != nil {
		return nil, err
	}
	if !won {
		if p.PaymentStatus == types.PaymentStatusFailed {
			return dto.NewPaymentResponse(p), nil
		}
		return nil, ierr.NewError("payment not pending").
			WithHint("Only pending payments can be failed").
			WithReportableDetails(map[string]any{"payment_status": p.PaymentStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusFailed
	p.FailedAt = &now
	p.ErrorMessage = types.ToNillableString(reason)
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, types.EventPaymentFailed, dto.NewPaymentResponse(p))
	s.Logger.Infow("failed payment", "payment_id", p.ID, "reason", reason)
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) CancelPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	won, err := s.PaymentRepo.TransitionStatus(ctx, p.ID, types.PaymentStatusPending, types.PaymentStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		if p.PaymentStatus == types.PaymentStatusCancelled {
			return dto.NewPaymentResponse(p), nil
		}
		return nil, ierr.NewError("payment not pending").
			WithHint("Only pending payments can be cancelled").
			WithReportableDetails(map[string]any{"payment_status": p.PaymentStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	p.PaymentStatus = types.PaymentStatusCancelled
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled payment", "payment_id", p.ID)
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) RefundPayment(ctx context.Context, id string, req *dto.RefundPaymentRequest) (*dto.PaymentResponse, error) {
	if req == nil {
		req = &dto.RefundPaymentRequest{}
	}

	var result *payment.Payment

	operation := func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			p, err := s.PaymentRepo.Get(ctx, id)
			if err != nil {
				return backoff.Permanent(err)
			}

			refundAmount := p.Amount
			if req.Amount != nil {
				refundAmount = *req.Amount
			}
			if !refundAmount.IsPositive() {
				return backoff.Permanent(ierr.NewError("invalid refund amount").
					WithHint("Refund amount must be greater than 0").
					Mark(ierr.ErrValidation))
			}
			if refundAmount.GreaterThan(p.Amount) {
				return backoff.Permanent(ierr.NewError("refund exceeds payment").
					WithHint("Refund amount cannot exceed the payment amount").
					WithReportableDetails(map[string]any{
						"refund_amount":  refundAmount,
						"payment_amount": p.Amount,
					}).
					Mark(ierr.ErrInvalidOperation))
			}

			won, err := s.PaymentRepo.TransitionStatus(ctx, p.ID, types.PaymentStatusCompleted, types.PaymentStatusRefunded)
			if err != nil {
				return backoff.Permanent(err)
			}
			if !won {
				return backoff.Permanent(ierr.NewError("payment not completed").
					WithHint("Only completed payments can be refunded").
					WithReportableDetails(map[string]any{"payment_status": p.PaymentStatus}).
					Mark(ierr.ErrInvalidOperation))
			}

			inv, err := s.InvoiceRepo.GetForUpdate(ctx, p.InvoiceID)
			if err != nil {
				return backoff.Permanent(err)
			}

			inv.AmountPaid = inv.AmountPaid.Sub(refundAmount)
			if inv.AmountPaid.IsNegative() {
				inv.AmountPaid = decimal.Zero
			}
			recomputeLedger(inv)
			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				if ierr.IsVersionConflict(err) {
					return err
				}
				return backoff.Permanent(err)
			}

			now := time.Now().UTC()
			p.PaymentStatus = types.PaymentStatusRefunded
			p.RefundedAt = &now
			if req.Reason != "" {
				p.ErrorMessage = types.ToNillableString(req.Reason)
			}
			if err := s.PaymentRepo.Update(ctx, p); err != nil {
				return backoff.Permanent(err)
			}
			result = p
			return nil
		})
	}

	if err := backoff.Retry(operation, ledgerRetryBackoff(ctx)); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, types.EventPaymentRefunded, dto.NewPaymentResponse(result))
	s.Logger.Infow("refunded payment", "payment_id", result.ID, "invoice_id", result.InvoiceID)
	return dto.NewPaymentResponse(result), nil
}
