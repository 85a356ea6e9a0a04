package types

import (
	"slices"
	"time"

	ierr "github.com/flexprice/taxsync/internal/errors"
)

// TimestampResolution is the precision of stored timestamps (postgres timestamptz).
// Cursors and revisions step by it so they survive a round trip through the store.
const TimestampResolution = time.Microsecond

// SyncMode is the synchronization mode requested by a device
type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
	// SyncModeForce is full sync where client local state is presumed discarded
	SyncModeForce SyncMode = "force"
)

func (m SyncMode) String() string {
	return string(m)
}

// IsDestructive reports whether the mode discards unsynced client state
func (m SyncMode) IsDestructive() bool {
	return m == SyncModeForce
}

func (m SyncMode) Validate() error {
	allowedValues := []SyncMode{SyncModeFull, SyncModeIncremental, SyncModeForce}
	if !slices.Contains(allowedValues, m) {
		return ierr.NewError("invalid sync mode").
			WithHint("Sync mode must be one of full, incremental or force").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SyncStatus is the state of a device relative to the server
type SyncStatus string

const (
	SyncStatusUnknown   SyncStatus = "unknown"
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusOutOfSync SyncStatus = "out_of_sync"
)

func (s SyncStatus) String() string {
	return string(s)
}

// ConflictResolution is the strategy a caller picks for a sync conflict
type ConflictResolution string

const (
	ConflictResolutionServerWins  ConflictResolution = "server_wins"
	ConflictResolutionClientWins  ConflictResolution = "client_wins"
	ConflictResolutionManualMerge ConflictResolution = "manual_merge"
)

func (r ConflictResolution) String() string {
	return string(r)
}

func (r ConflictResolution) Validate() error {
	allowedValues := []ConflictResolution{
		ConflictResolutionServerWins,
		ConflictResolutionClientWins,
		ConflictResolutionManualMerge,
	}
	if !slices.Contains(allowedValues, r) {
		return ierr.NewError("invalid conflict resolution").
			WithHint("Conflict resolution must be one of server_wins, client_wins or manual_merge").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConflictStatus tracks a conflict through resolution
type ConflictStatus string

const (
	ConflictStatusOpen          ConflictStatus = "open"
	ConflictStatusResolved      ConflictStatus = "resolved"
	ConflictStatusPendingManual ConflictStatus = "pending_manual"
)

// SyncEntityType names the server entities a device keeps in sync
type SyncEntityType string

const (
	SyncEntityTaxForm         SyncEntityType = "tax_form"
	SyncEntityTaxRule         SyncEntityType = "tax_rule"
	SyncEntityCompanySettings SyncEntityType = "company_settings"
)

func (e SyncEntityType) String() string {
	return string(e)
}

func (e SyncEntityType) Validate() error {
	allowedValues := []SyncEntityType{SyncEntityTaxForm, SyncEntityTaxRule, SyncEntityCompanySettings}
	if !slices.Contains(allowedValues, e) {
		return ierr.NewError("invalid entity type").
			WithHint("Entity type must be one of tax_form, tax_rule or company_settings").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EntityKey identifies a synced entity, used to key acknowledged revisions
func EntityKey(entityType SyncEntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}
