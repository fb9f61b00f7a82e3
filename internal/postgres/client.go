package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/config"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/types"
)

// Querier is the subset of pgx operations shared by the pool and an open
// transaction, so repositories stay oblivious to transaction boundaries
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IClient defines database operations with transaction support
type IClient interface {
	Querier(ctx context.Context) Querier
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close()
}

type client struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPool creates a pgx connection pool from the configuration
func NewPool(cfg *config.Configuration, log *logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid postgres configuration").
			Mark(ierr.ErrDatabase)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}
	return pool, nil
}

// NewClient creates a new postgres client with the given pool
func NewClient(pool *pgxpool.Pool, log *logger.Logger) IClient {
	return &client{pool: pool, logger: log}
}

// Querier returns the transaction bound to the context when one is open,
// otherwise the pool itself
func (c *client) Querier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(pgx.Tx); ok {
		return tx
	}
	return c.pool
}

// WithTx runs fn inside a transaction. A transaction already bound to the
// context is reused, so nested calls share a single commit point.
func (c *client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(types.CtxDBTransaction).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to start transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Close releases the underlying pool
func (c *client) Close() {
	c.pool.Close()
}
