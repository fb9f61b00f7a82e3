package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/campusledger/campusledger/internal/domain/gatewaytx"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type webhookEventRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewWebhookEventRepository creates a postgres-backed webhook event repository
func NewWebhookEventRepository(db postgres.IClient, log *logger.Logger) gatewaytx.WebhookEventRepository {
	return &webhookEventRepository{db: db, logger: log}
}

const webhookEventColumns = `id, event_type, reference, idempotency_key, payload,
	received_at, processed, outcome,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *webhookEventRepository) Create(ctx context.Context, e *gatewaytx.WebhookEvent) error {
	r.logger.Debugw("storing webhook event", "event_type", e.EventType, "idempotency_key", e.IdempotencyKey)

	query := fmt.Sprintf(`INSERT INTO webhook_events (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		webhookEventColumns)

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		e.ID, e.EventType, e.Reference, e.IdempotencyKey, e.Payload,
		e.ReceivedAt, e.Processed, e.Outcome,
		e.TenantID, e.Status, e.CreatedAt, e.UpdatedAt, e.CreatedBy, e.UpdatedBy,
	)
	return wrapErr(err, "Webhook event")
}

func (r *webhookEventRepository) Get(ctx context.Context, id string) (*gatewaytx.WebhookEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_events
		WHERE id = $1 AND tenant_id = $2 AND status != $3`, webhookEventColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	e, err := scanWebhookEvent(row)
	if err != nil {
		return nil, wrapErr(err, "Webhook event")
	}
	return e, nil
}

func (r *webhookEventRepository) GetByIdempotencyKey(ctx context.Context, key string) (*gatewaytx.WebhookEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_events
		WHERE idempotency_key = $1 AND tenant_id = $2 AND status != $3`, webhookEventColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, key, types.GetTenantID(ctx), types.StatusDeleted)
	e, err := scanWebhookEvent(row)
	if err != nil {
		return nil, wrapErr(err, "Webhook event")
	}
	return e, nil
}

func (r *webhookEventRepository) Update(ctx context.Context, e *gatewaytx.WebhookEvent) error {
	query := `UPDATE webhook_events SET
		processed = $3, outcome = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND tenant_id = $2 AND status != $7`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		e.ID, types.GetTenantID(ctx),
		e.Processed, e.Outcome, time.Now().UTC(), types.GetUserID(ctx),
		types.StatusDeleted,
	)
	if err != nil {
		return wrapErr(err, "Webhook event")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Webhook event")
	}
	return nil
}

func (r *webhookEventRepository) ListUnprocessed(ctx context.Context) ([]*gatewaytx.WebhookEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_events
		WHERE tenant_id = $1 AND status != $2 AND NOT processed
		ORDER BY received_at`, webhookEventColumns)

	rows, err := r.db.Querier(ctx).Query(ctx, query, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Webhook event")
	}
	defer rows.Close()

	var events []*gatewaytx.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, wrapErr(err, "Webhook event")
		}
		events = append(events, e)
	}
	return events, wrapErr(rows.Err(), "Webhook event")
}

func scanWebhookEvent(row rowScanner) (*gatewaytx.WebhookEvent, error) {
	var e gatewaytx.WebhookEvent
	err := row.Scan(
		&e.ID, &e.EventType, &e.Reference, &e.IdempotencyKey, &e.Payload,
		&e.ReceivedAt, &e.Processed, &e.Outcome,
		&e.TenantID, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
