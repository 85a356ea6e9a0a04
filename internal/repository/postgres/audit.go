package postgres

import (
	"context"

	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
)

type auditRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAuditRepository(db *postgres.DB, logger *logger.Logger) audit.Repository {
	return &auditRepository{db: db, logger: logger}
}

// Create appends an event. A replayed event id is a no-op so sink retries stay idempotent.
func (r *auditRepository) Create(ctx context.Context, e *audit.Event) error {
	query := `
	INSERT INTO audit_events (
		id, tenant_id, event_type, outcome, company_id, device_id, mode, destructive,
		resolution, synced_calculations, failed_calculations, conflicts,
		error_code, request_id, details, occurred_at
	) VALUES (
		:id, :tenant_id, :event_type, :outcome, :company_id, :device_id, :mode, :destructive,
		:resolution, :synced_calculations, :failed_calculations, :conflicts,
		:error_code, :request_id, :details, :occurred_at
	)
	ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, e); err != nil {
		return postgres.WrapError(err, "audit event")
	}
	return nil
}
