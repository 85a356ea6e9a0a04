package postgres

import (
	"database/sql"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/postgres"
)

// requireRow turns an update that matched nothing into ErrNotFound
func requireRow(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.WrapError(err, entity)
	}
	if rows == 0 {
		return ierr.NewErrorf("%s not found", entity).
			WithHintf("The %s was not found", entity).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
