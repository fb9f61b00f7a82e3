package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusledger/campusledger/internal/api/dto"
	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/gateway/paystack"
	"github.com/campusledger/campusledger/internal/idempotency"
	"github.com/campusledger/campusledger/internal/types"
)

// Webhook processing outcomes recorded on the audit log
const (
	outcomeApplied = "applied"
	outcomeIgnored = "ignored"
	outcomeNoop    = "noop"
)

// ReconcilerService keeps local payments in sync with the hosted-payment
// provider. Webhooks and explicit verification converge on the same
// reconciliation path, so either source of truth may arrive first.
type ReconcilerService interface {
	// InitializeTransaction opens a hosted checkout session for an invoice
	// and records the pending payment it will settle
	InitializeTransaction(ctx context.Context, req *dto.InitializeGatewayRequest) (*dto.InitializeGatewayResponse, error)

	// VerifyTransaction fetches the provider's view of a reference and
	// applies it to the local payment
	VerifyTransaction(ctx context.Context, reference string) (*dto.VerifyTransactionResponse, error)

	// HandleWebhookEvent validates, deduplicates and applies an inbound
	// provider notification. Replays of a processed delivery return the
	// stored outcome without side effects.
	HandleWebhookEvent(ctx context.Context, payload []byte, signature string) (*dto.WebhookResultResponse, error)
}

type reconcilerService struct {
	ServiceParams

	paymentService PaymentService
}

// NewReconcilerService creates a new gateway reconciler
func NewReconcilerService(params ServiceParams) ReconcilerService {
	return &reconcilerService{
		ServiceParams:  params,
		paymentService: NewPaymentService(params),
	}
}

func (s *reconcilerService) InitializeTransaction(ctx context.Context, req *dto.InitializeGatewayRequest) (*dto.InitializeGatewayResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	amount := inv.BalanceDue
	if req.Amount != nil {
		amount = *req.Amount
	}

	paymentResp, err := s.paymentService.CreatePayment(ctx, &dto.CreatePaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        amount,
		PaymentMethod: types.PaymentMethodGateway,
		CustomerEmail: &req.CustomerEmail,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	reference := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GATEWAY_TRANSACTION)

	initResp, err := s.GatewayClient.Initialize(ctx, &paystack.InitializeRequest{
		Email:     req.CustomerEmail,
		Amount:    toMinorUnits(amount),
		Reference: reference,
		Metadata: map[string]any{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
			"payment_id":     paymentResp.ID,
			"student_id":     inv.StudentID,
		},
	})
	if err != nil {
		// the local payment stays pending but never reaches the provider
		if _, cancelErr := s.paymentService.CancelPayment(ctx, paymentResp.ID); cancelErr != nil {
			s.Logger.Errorw("failed to cancel orphaned gateway payment",
				"payment_id", paymentResp.ID, "error", cancelErr)
		}
		return nil, err
	}

	p := paymentResp.Payment
	p.GatewayReference = &initResp.Reference
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &gatewaytx.Transaction{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GATEWAY_TRANSACTION),
		Reference:        initResp.Reference,
		PaymentID:        p.ID,
		RemoteStatus:     types.GatewayStatusPending,
		AccessCode:       types.ToNillableString(initResp.AccessCode),
		AuthorizationURL: types.ToNillableString(initResp.AuthorizationURL),
		CustomerEmail:    req.CustomerEmail,
		LastSyncedAt:     &now,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	if err := s.GatewayTxRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	s.Logger.Infow("initialized gateway checkout",
		"reference", txn.Reference,
		"payment_id", p.ID,
		"invoice_id", inv.ID,
	)
	return &dto.InitializeGatewayResponse{
		PaymentID:        p.ID,
		Reference:        txn.Reference,
		AuthorizationURL: initResp.AuthorizationURL,
		AccessCode:       initResp.AccessCode,
	}, nil
}

func (s *reconcilerService) VerifyTransaction(ctx context.Context, reference string) (*dto.VerifyTransactionResponse, error) {
	verifyResp, err := s.GatewayClient.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(verifyResp)
	txn, _, err := s.applyRemoteState(ctx, reference, verifyResp.Status, verifyResp.AuthorizationCode, verifyResp.GatewayResponse, raw)
	if err != nil {
		return nil, err
	}

	return &dto.VerifyTransactionResponse{
		Reference:    txn.Reference,
		RemoteStatus: txn.RemoteStatus,
		PaymentID:    txn.PaymentID,
		SyncedAt:     time.Now().UTC(),
	}, nil
}

func (s *reconcilerService) HandleWebhookEvent(ctx context.Context, payload []byte, signature string) (*dto.WebhookResultResponse, error) {
	// fail closed before reading anything out of the body
	if err := s.GatewayClient.VerifyWebhookSignature(payload, signature); err != nil {
		return nil, err
	}

	var envelope paystack.WebhookPayload
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			Mark(ierr.ErrValidation)
	}

	var data paystack.WebhookData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			Mark(ierr.ErrValidation)
	}

	key := idempotencyGenerator.GenerateKey(idempotency.ScopeWebhookEvent, map[string]interface{}{
		"event_type":   envelope.Event,
		"reference":    data.Reference,
		"payload_hash": idempotency.PayloadHash(payload),
	})

	// a delivery already processed under this key is acknowledged as-is
	if existing, err := s.WebhookEventRepo.GetByIdempotencyKey(ctx, key); err == nil {
		return &dto.WebhookResultResponse{
			EventID:   existing.ID,
			EventType: existing.EventType,
			Reference: existing.Reference,
			Outcome:   types.FromNillableString(existing.Outcome),
			Replayed:  true,
		}, nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	event := &gatewaytx.WebhookEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventType:      envelope.Event,
		Reference:      data.Reference,
		IdempotencyKey: key,
		Payload:        payload,
		ReceivedAt:     time.Now().UTC(),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.WebhookEventRepo.Create(ctx, event); err != nil {
		// a concurrent delivery with the same key won the insert
		if ierr.IsAlreadyExists(err) {
			if existing, getErr := s.WebhookEventRepo.GetByIdempotencyKey(ctx, key); getErr == nil {
				return &dto.WebhookResultResponse{
					EventID:   existing.ID,
					EventType: existing.EventType,
					Reference: existing.Reference,
					Outcome:   types.FromNillableString(existing.Outcome),
					Replayed:  true,
				}, nil
			}
		}
		return nil, err
	}

	outcome, err := s.applyWebhook(ctx, &envelope, &data)
	if err != nil {
		// the event stays unprocessed for manual replay
		s.Logger.Errorw("failed to apply webhook event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"reference", event.Reference,
			"error", err,
		)
		return nil, err
	}

	event.Processed = true
	event.Outcome = &outcome
	if err := s.WebhookEventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	s.Logger.Infow("processed webhook event",
		"event_id", event.ID,
		"event_type", event.EventType,
		"reference", event.Reference,
		"outcome", outcome,
	)
	return &dto.WebhookResultResponse{
		EventID:   event.ID,
		EventType: event.EventType,
		Reference: event.Reference,
		Outcome:   outcome,
	}, nil
}

func (s *reconcilerService) applyWebhook(ctx context.Context, envelope *paystack.WebhookPayload, data *paystack.WebhookData) (string, error) {
	var remoteStatus string
	switch envelope.Event {
	case types.GatewayEventChargeSuccess:
		remoteStatus = "success"
	case types.GatewayEventChargeFailed:
		remoteStatus = "failed"
	case types.GatewayEventChargeAbandoned:
		remoteStatus = "abandoned"
	default:
		// unknown event types are acknowledged and kept for audit
		return outcomeIgnored, nil
	}

	_, changed, err := s.applyRemoteState(ctx, data.Reference, remoteStatus, data.Authorization.AuthorizationCode, data.GatewayResponse, envelope.Data)
	if err != nil {
		return "", err
	}
	if !changed {
		return outcomeNoop, nil
	}
	return outcomeApplied, nil
}

// applyRemoteState reconciles a provider-reported status onto the local
// transaction and its payment. A reference already in a terminal state is
// left untouched.
func (s *reconcilerService) applyRemoteState(ctx context.Context, reference, remoteStatus, authCode, remoteMessage string, raw json.RawMessage) (*gatewaytx.Transaction, bool, error) {
	txn, err := s.GatewayTxRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, false, err
	}

	status, err := mapRemoteStatus(remoteStatus)
	if err != nil {
		return nil, false, err
	}

	if txn.RemoteStatus.IsTerminal() {
		// the outcome already landed; nothing left to reconcile
		return txn, false, nil
	}

	switch status {
	case types.GatewayStatusSuccess:
		if authCode != "" {
			p, err := s.PaymentRepo.Get(ctx, txn.PaymentID)
			if err != nil {
				return nil, false, err
			}
			p.AuthorizationCode = &authCode
			if err := s.PaymentRepo.Update(ctx, p); err != nil {
				return nil, false, err
			}
		}
		if _, err := s.paymentService.CompletePayment(ctx, txn.PaymentID); err != nil {
			return nil, false, err
		}
	case types.GatewayStatusFailed:
		if _, err := s.paymentService.FailPayment(ctx, txn.PaymentID, remoteMessage); err != nil && !ierr.IsInvalidOperation(err) {
			return nil, false, err
		}
	case types.GatewayStatusAbandoned:
		if _, err := s.paymentService.CancelPayment(ctx, txn.PaymentID); err != nil && !ierr.IsInvalidOperation(err) {
			return nil, false, err
		}
	}

	now := time.Now().UTC()
	txn.RemoteStatus = status
	txn.RawPayload = raw
	txn.LastSyncedAt = &now
	if err := s.GatewayTxRepo.Update(ctx, txn); err != nil {
		return nil, false, err
	}
	return txn, true, nil
}

func mapRemoteStatus(remote string) (types.GatewayStatus, error) {
	switch remote {
	case "success":
		return types.GatewayStatusSuccess, nil
	case "failed":
		return types.GatewayStatusFailed, nil
	case "abandoned":
		return types.GatewayStatusAbandoned, nil
	case "pending", "ongoing", "processing", "queued":
		return types.GatewayStatusPending, nil
	default:
		return "", ierr.NewError("unknown gateway status").
			WithHint("The provider reported an unrecognized transaction status").
			WithReportableDetails(map[string]any{"remote_status": remote}).
			Mark(ierr.ErrValidation)
	}
}

// toMinorUnits converts a major-unit amount to the provider's integer minor
// units, e.g. 150.00 to 15000
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
