package postgres

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
)

const syncStateColumns = `id, tenant_id, company_id, device_id, last_sync_timestamp, last_sync_at,
		sync_status, last_mode, acknowledged_revisions,
		status, created_at, updated_at, created_by, updated_by`

type syncStateRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSyncStateRepository(db *postgres.DB, logger *logger.Logger) syncstate.Repository {
	return &syncStateRepository{db: db, logger: logger}
}

func (r *syncStateRepository) Get(ctx context.Context, tenantID, companyID, deviceID string) (*syncstate.SyncState, error) {
	query := `SELECT ` + syncStateColumns + ` FROM sync_states
	WHERE tenant_id = $1 AND company_id = $2 AND device_id = $3`

	var st syncstate.SyncState
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &st, query, tenantID, companyID, deviceID); err != nil {
		return nil, postgres.WrapError(err, "sync state")
	}
	return &st, nil
}

func (r *syncStateRepository) ListByDevice(ctx context.Context, tenantID, deviceID string) ([]*syncstate.SyncState, error) {
	query := `SELECT ` + syncStateColumns + ` FROM sync_states
	WHERE tenant_id = $1 AND device_id = $2
	ORDER BY last_sync_at DESC NULLS LAST, company_id`

	states := []*syncstate.SyncState{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &states, query, tenantID, deviceID); err != nil {
		return nil, postgres.WrapError(err, "sync state")
	}
	return states, nil
}

const syncStateUpsert = `
	INSERT INTO sync_states (` + syncStateColumns + `) VALUES (
		:id, :tenant_id, :company_id, :device_id, :last_sync_timestamp, :last_sync_at,
		:sync_status, :last_mode, :acknowledged_revisions,
		:status, :created_at, :updated_at, :created_by, :updated_by
	)
	ON CONFLICT (tenant_id, company_id, device_id) DO UPDATE SET
		last_sync_timestamp = EXCLUDED.last_sync_timestamp,
		last_sync_at = EXCLUDED.last_sync_at,
		sync_status = EXCLUDED.sync_status,
		last_mode = EXCLUDED.last_mode,
		acknowledged_revisions = EXCLUDED.acknowledged_revisions,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by`

// Replace overwrites the state whatever the stored cursor
func (r *syncStateRepository) Replace(ctx context.Context, st *syncstate.SyncState) error {
	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, syncStateUpsert, st); err != nil {
		return postgres.WrapError(err, "sync state")
	}
	return nil
}

// Upsert writes the state unless the stored cursor is newer. The guard lives
// in the statement so concurrent writers cannot interleave a regression.
func (r *syncStateRepository) Upsert(ctx context.Context, st *syncstate.SyncState) error {
	query := syncStateUpsert + `
	WHERE sync_states.last_sync_timestamp <= EXCLUDED.last_sync_timestamp`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, st)
	if err != nil {
		return postgres.WrapError(err, "sync state")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.WrapError(err, "sync state")
	}
	if rows > 0 {
		return nil
	}

	var current time.Time
	err = r.db.GetQuerier(ctx).GetContext(ctx, &current,
		`SELECT last_sync_timestamp FROM sync_states WHERE tenant_id = $1 AND company_id = $2 AND device_id = $3`,
		st.TenantID, st.CompanyID, st.DeviceID)
	if err != nil {
		return postgres.WrapError(err, "sync state")
	}

	r.logger.Warnw("rejected sync cursor regression",
		"tenant_id", st.TenantID,
		"company_id", st.CompanyID,
		"device_id", st.DeviceID,
		"current", current,
		"next", st.LastSyncTimestamp,
	)
	return syncstate.ErrCursorRegression(st.DeviceID, current, st.LastSyncTimestamp)
}
