package postgres

import (
	"context"
	"io/fs"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending migration found in migrations
func Migrate(ctx context.Context, db *DB, migrations fs.FS, log *logger.Logger) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB.DB, migrations)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load migrations").
			Mark(ierr.ErrDatabase)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to apply migrations").
			Mark(ierr.ErrDatabase)
	}
	for _, r := range results {
		log.Infow("applied migration",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return nil
}

// PendingMigrations lists the migrations Migrate would apply
func PendingMigrations(ctx context.Context, db *DB, migrations fs.FS) ([]string, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB.DB, migrations)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load migrations").
			Mark(ierr.ErrDatabase)
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read migration status").
			Mark(ierr.ErrDatabase)
	}
	var pending []string
	for _, st := range statuses {
		if st.State == goose.StatePending {
			pending = append(pending, st.Source.Path)
		}
	}
	return pending, nil
}
