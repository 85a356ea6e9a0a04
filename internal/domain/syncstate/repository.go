package syncstate

import (
	"context"

	"github.com/flexprice/taxsync/internal/types"
)

// Repository persists device sync state, one row per (tenant, company, device)
type Repository interface {
	// Get returns ErrNotFound for a device that never synced the company
	Get(ctx context.Context, tenantID, companyID, deviceID string) (*SyncState, error)
	// ListByDevice returns the states of a device across companies, most recently synced first
	ListByDevice(ctx context.Context, tenantID, deviceID string) ([]*SyncState, error)
	// Upsert creates or replaces the state and rejects a cursor older than the stored one
	Upsert(ctx context.Context, state *SyncState) error
	// Replace creates or overwrites the state without the cursor guard
	Replace(ctx context.Context, state *SyncState) error
}

// ConflictRepository persists sync conflicts
type ConflictRepository interface {
	Create(ctx context.Context, conflict *Conflict) error
	Update(ctx context.Context, conflict *Conflict) error
	// GetUnresolved returns the open or pending_manual conflict of the device for the entity within a company
	GetUnresolved(ctx context.Context, tenantID, companyID, deviceID string, entityType types.SyncEntityType, entityID string) (*Conflict, error)
	// ListUnresolved returns the open or pending_manual conflicts of the device for the entity across companies
	ListUnresolved(ctx context.Context, tenantID, deviceID string, entityType types.SyncEntityType, entityID string) ([]*Conflict, error)
	// ListOpen returns conflicts of the device within a company in status open
	ListOpen(ctx context.Context, tenantID, companyID, deviceID string) ([]*Conflict, error)
	CountOpen(ctx context.Context, tenantID, companyID, deviceID string) (int, error)
}
