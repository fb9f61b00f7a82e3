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

type gatewayTxRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewGatewayTxRepository creates a postgres-backed gateway transaction repository
func NewGatewayTxRepository(db postgres.IClient, log *logger.Logger) gatewaytx.Repository {
	return &gatewayTxRepository{db: db, logger: log}
}

const gatewayTxColumns = `id, reference, payment_id, remote_status, access_code,
	authorization_url, customer_email, raw_payload, last_synced_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *gatewayTxRepository) Create(ctx context.Context, txn *gatewaytx.Transaction) error {
	r.logger.Debugw("creating gateway transaction", "reference", txn.Reference, "payment_id", txn.PaymentID)

	query := fmt.Sprintf(`INSERT INTO gateway_transactions (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		gatewayTxColumns)

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		txn.ID, txn.Reference, txn.PaymentID, txn.RemoteStatus, txn.AccessCode,
		txn.AuthorizationURL, txn.CustomerEmail, txn.RawPayload, txn.LastSyncedAt,
		txn.TenantID, txn.Status, txn.CreatedAt, txn.UpdatedAt, txn.CreatedBy, txn.UpdatedBy,
	)
	return wrapErr(err, "Gateway transaction")
}

func (r *gatewayTxRepository) Get(ctx context.Context, id string) (*gatewaytx.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM gateway_transactions
		WHERE id = $1 AND tenant_id = $2 AND status != $3`, gatewayTxColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted)
	txn, err := scanGatewayTx(row)
	if err != nil {
		return nil, wrapErr(err, "Gateway transaction")
	}
	return txn, nil
}

func (r *gatewayTxRepository) GetByReference(ctx context.Context, reference string) (*gatewaytx.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM gateway_transactions
		WHERE reference = $1 AND tenant_id = $2 AND status != $3`, gatewayTxColumns)

	row := r.db.Querier(ctx).QueryRow(ctx, query, reference, types.GetTenantID(ctx), types.StatusDeleted)
	txn, err := scanGatewayTx(row)
	if err != nil {
		return nil, wrapErr(err, "Gateway transaction")
	}
	return txn, nil
}

func (r *gatewayTxRepository) Update(ctx context.Context, txn *gatewaytx.Transaction) error {
	query := `UPDATE gateway_transactions SET
		remote_status = $3, access_code = $4, authorization_url = $5,
		raw_payload = $6, last_synced_at = $7, updated_at = $8, updated_by = $9
		WHERE id = $1 AND tenant_id = $2 AND status != $10`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		txn.ID, types.GetTenantID(ctx),
		txn.RemoteStatus, txn.AccessCode, txn.AuthorizationURL,
		txn.RawPayload, txn.LastSyncedAt, time.Now().UTC(), types.GetUserID(ctx),
		types.StatusDeleted,
	)
	if err != nil {
		return wrapErr(err, "Gateway transaction")
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(errNoRows(), "Gateway transaction")
	}
	return nil
}

func scanGatewayTx(row rowScanner) (*gatewaytx.Transaction, error) {
	var txn gatewaytx.Transaction
	err := row.Scan(
		&txn.ID, &txn.Reference, &txn.PaymentID, &txn.RemoteStatus, &txn.AccessCode,
		&txn.AuthorizationURL, &txn.CustomerEmail, &txn.RawPayload, &txn.LastSyncedAt,
		&txn.TenantID, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt, &txn.CreatedBy, &txn.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
