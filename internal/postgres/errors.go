package postgres

import (
	"context"
	"database/sql"
	"errors"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// WrapError maps driver errors onto the error kinds callers branch on.
// entity names the row kind in hints, e.g. "tax rule".
func WrapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("The %s was not found", entity).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ierr.WithError(err).
			WithHintf("The %s already exists", entity).
			WithReportableDetails(map[string]any{"constraint": pqErr.Constraint}).
			Mark(ierr.ErrAlreadyExists)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ierr.WithError(err).
			WithHintf("Timed out accessing the %s", entity).
			Mark(ierr.ErrDatabase)
	}

	return ierr.WithError(err).
		WithHintf("Failed to access the %s", entity).
		Mark(ierr.ErrDatabase)
}
