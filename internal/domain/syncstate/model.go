package syncstate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
)

// SyncState is the per device synchronization cursor, unique per (tenant_id, company_id, device_id)
type SyncState struct {
	ID        string `db:"id" json:"id"`
	CompanyID string `db:"company_id" json:"company_id"`
	DeviceID  string `db:"device_id" json:"device_id"`
	// LastSyncTimestamp is the data derived cursor, only a destructive sync moves it backwards
	LastSyncTimestamp time.Time `db:"last_sync_timestamp" json:"last_sync_timestamp"`
	// LastSyncAt is the wall clock time of the last successful sync
	LastSyncAt            *time.Time       `db:"last_sync_at" json:"last_sync_at,omitempty"`
	SyncStatus            types.SyncStatus `db:"sync_status" json:"sync_status"`
	LastMode              types.SyncMode   `db:"last_mode" json:"last_mode,omitempty"`
	AcknowledgedRevisions Revisions        `db:"acknowledged_revisions" json:"acknowledged_revisions"`
	types.BaseModel
}

// Advance moves the cursor forward, it refuses to regress
func (s *SyncState) Advance(cursor time.Time) error {
	if cursor.Before(s.LastSyncTimestamp) {
		return ErrCursorRegression(s.DeviceID, s.LastSyncTimestamp, cursor)
	}
	s.LastSyncTimestamp = cursor
	return nil
}

// Reset replaces the cursor in either direction, destructive syncs rebuild it from the delivered rows
func (s *SyncState) Reset(cursor time.Time) {
	s.LastSyncTimestamp = cursor
}

// ErrCursorRegression is returned by stores asked to move a cursor backwards
func ErrCursorRegression(deviceID string, current, next time.Time) error {
	return ierr.NewError("sync cursor regression").
		WithHint("The sync cursor cannot move backwards").
		WithReportableDetails(map[string]any{
			"device_id": deviceID,
			"current":   current,
			"next":      next,
		}).
		Mark(ierr.ErrInvalidOperation)
}

// Revisions maps an entity key (see types.EntityKey) to the acknowledged revision
type Revisions map[string]int64

// Merge returns a copy of r overlaid with other
func (r Revisions) Merge(other Revisions) Revisions {
	out := make(Revisions, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer
func (r Revisions) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner
func (r *Revisions) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = Revisions{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported revisions column type %T", src)
	}
	return json.Unmarshal(data, r)
}

// Conflict is a detected divergence between a device and the server
type Conflict struct {
	ID             string                    `db:"id" json:"id"`
	CompanyID      string                    `db:"company_id" json:"company_id"`
	DeviceID       string                    `db:"device_id" json:"device_id"`
	EntityType     types.SyncEntityType      `db:"entity_type" json:"entity_type"`
	EntityID       string                    `db:"entity_id" json:"entity_id"`
	ServerRevision int64                     `db:"server_revision" json:"server_revision"`
	ClientRevision int64                     `db:"client_revision" json:"client_revision"`
	CalculationID  string                    `db:"calculation_id" json:"calculation_id,omitempty"`
	Resolution     *types.ConflictResolution `db:"resolution" json:"resolution,omitempty"`
	ConflictStatus types.ConflictStatus      `db:"conflict_status" json:"conflict_status"`
	DetectedAt     time.Time                 `db:"detected_at" json:"detected_at"`
	ResolvedAt     *time.Time                `db:"resolved_at" json:"resolved_at,omitempty"`
	types.BaseModel
}

// Key identifies the conflicting entity
func (c *Conflict) Key() string {
	return types.EntityKey(c.EntityType, c.EntityID)
}

// IsOpen reports whether the conflict still awaits a resolution
func (c *Conflict) IsOpen() bool {
	return c.ConflictStatus == types.ConflictStatusOpen
}

// Resolve applies a strategy, manual_merge leaves the conflict pending an operator
func (c *Conflict) Resolve(resolution types.ConflictResolution, at time.Time) {
	c.Resolution = &resolution
	if resolution == types.ConflictResolutionManualMerge {
		c.ConflictStatus = types.ConflictStatusPendingManual
		return
	}
	c.ConflictStatus = types.ConflictStatusResolved
	c.ResolvedAt = &at
}
