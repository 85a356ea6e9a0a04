package postgres

import (
	"context"

	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	"github.com/flexprice/taxsync/internal/types"
)

const conflictColumns = `id, tenant_id, company_id, device_id, entity_type, entity_id,
		server_revision, client_revision, calculation_id, resolution, conflict_status,
		detected_at, resolved_at, status, created_at, updated_at, created_by, updated_by`

type conflictRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewConflictRepository(db *postgres.DB, logger *logger.Logger) syncstate.ConflictRepository {
	return &conflictRepository{db: db, logger: logger}
}

func (r *conflictRepository) Create(ctx context.Context, c *syncstate.Conflict) error {
	query := `
	INSERT INTO sync_conflicts (` + conflictColumns + `) VALUES (
		:id, :tenant_id, :company_id, :device_id, :entity_type, :entity_id,
		:server_revision, :client_revision, :calculation_id, :resolution, :conflict_status,
		:detected_at, :resolved_at, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c); err != nil {
		return postgres.WrapError(err, "sync conflict")
	}
	return nil
}

func (r *conflictRepository) Update(ctx context.Context, c *syncstate.Conflict) error {
	query := `
	UPDATE sync_conflicts SET
		server_revision = :server_revision, client_revision = :client_revision,
		calculation_id = :calculation_id, resolution = :resolution,
		conflict_status = :conflict_status, resolved_at = :resolved_at,
		updated_at = :updated_at, updated_by = :updated_by
	WHERE tenant_id = :tenant_id AND id = :id`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c)
	if err != nil {
		return postgres.WrapError(err, "sync conflict")
	}
	return requireRow(result, "sync conflict")
}

func (r *conflictRepository) GetUnresolved(ctx context.Context, tenantID, companyID, deviceID string, entityType types.SyncEntityType, entityID string) (*syncstate.Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts
	WHERE tenant_id = $1 AND company_id = $2 AND device_id = $3 AND entity_type = $4 AND entity_id = $5
		AND conflict_status IN ($6, $7)`

	var c syncstate.Conflict
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, tenantID, companyID, deviceID, entityType, entityID,
		types.ConflictStatusOpen, types.ConflictStatusPendingManual)
	if err != nil {
		return nil, postgres.WrapError(err, "sync conflict")
	}
	return &c, nil
}

func (r *conflictRepository) ListUnresolved(ctx context.Context, tenantID, deviceID string, entityType types.SyncEntityType, entityID string) ([]*syncstate.Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts
	WHERE tenant_id = $1 AND device_id = $2 AND entity_type = $3 AND entity_id = $4
		AND conflict_status IN ($5, $6)
	ORDER BY company_id`

	conflicts := []*syncstate.Conflict{}
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &conflicts, query, tenantID, deviceID, entityType, entityID,
		types.ConflictStatusOpen, types.ConflictStatusPendingManual)
	if err != nil {
		return nil, postgres.WrapError(err, "sync conflict")
	}
	return conflicts, nil
}

func (r *conflictRepository) ListOpen(ctx context.Context, tenantID, companyID, deviceID string) ([]*syncstate.Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts
	WHERE tenant_id = $1 AND company_id = $2 AND device_id = $3 AND conflict_status = $4
	ORDER BY detected_at, id`

	conflicts := []*syncstate.Conflict{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &conflicts, query, tenantID, companyID, deviceID, types.ConflictStatusOpen); err != nil {
		return nil, postgres.WrapError(err, "sync conflict")
	}
	return conflicts, nil
}

func (r *conflictRepository) CountOpen(ctx context.Context, tenantID, companyID, deviceID string) (int, error) {
	query := `SELECT COUNT(*) FROM sync_conflicts
	WHERE tenant_id = $1 AND company_id = $2 AND device_id = $3 AND conflict_status = $4`

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, tenantID, companyID, deviceID, types.ConflictStatusOpen); err != nil {
		return 0, postgres.WrapError(err, "sync conflict")
	}
	return count, nil
}
