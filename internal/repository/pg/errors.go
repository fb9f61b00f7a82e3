package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	ierr "github.com/campusledger/campusledger/internal/errors"
)

const pgUniqueViolation = "23505"

// wrapErr maps pgx failures onto the shared error taxonomy. Callers provide
// the entity name for the hint; not-found and duplicate-key outcomes keep
// their distinct marks so services can branch on them.
func wrapErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			Mark(ierr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ierr.WithError(err).
			WithHintf("%s already exists", entity).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHintf("Failed to access %s", entity).
		Mark(ierr.ErrDatabase)
}
