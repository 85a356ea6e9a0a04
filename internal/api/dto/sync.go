package dto

import (
	"fmt"
	"time"

	"github.com/flexprice/taxsync/internal/domain/syncstate"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
)

// EntityRef names a server entity a pending calculation was computed against
type EntityRef struct {
	EntityType types.SyncEntityType `json:"entity_type" validate:"required"`
	EntityID   string               `json:"entity_id" validate:"required"`
	// revision the device used, defaults to the device's acknowledged revision
	Revision int64 `json:"revision,omitempty"`
}

// Key identifies the referenced entity
func (r EntityRef) Key() string {
	return types.EntityKey(r.EntityType, r.EntityID)
}

// PendingCalculation is a calculation the device made offline
type PendingCalculation struct {
	ID string `json:"id"`
	// request company_id defaults to the synced company
	Request   CalculationRequest `json:"request"`
	DependsOn []EntityRef        `json:"depends_on,omitempty"`
}

// SyncRequest asks the server to synchronize one device
type SyncRequest struct {
	// device_id identifies the client device (required)
	DeviceID string `json:"device_id" validate:"required"`

	// company_id is the company whose tax state is synced (required)
	CompanyID string `json:"company_id" validate:"required"`

	// mode is one of full, incremental or force
	Mode types.SyncMode `json:"mode" validate:"required"`

	// last_sync_timestamp is the device cursor, ignored by full and force
	LastSyncTimestamp *time.Time `json:"last_sync_timestamp,omitempty"`

	// pending_calculations are validated one by one, a bad item fails alone
	PendingCalculations []PendingCalculation `json:"pending_calculations,omitempty"`

	// acknowledged_revisions maps entity keys such as tax_rule:<id> to the revision the device applied
	AcknowledgedRevisions map[string]int64 `json:"acknowledged_revisions,omitempty"`

	// conflict_resolution resolves detected conflicts inline when present
	ConflictResolution *types.ConflictResolution `json:"conflict_resolution,omitempty"`
}

func (r SyncRequest) Validate() error {
	if err := r.Mode.Validate(); err != nil {
		return err
	}
	if r.ConflictResolution != nil {
		if err := r.ConflictResolution.Validate(); err != nil {
			return err
		}
	}
	if r.Mode == types.SyncModeIncremental && r.LastSyncTimestamp == nil {
		return ierr.NewValidationError([]ierr.FieldError{{
			Field:   "last_sync_timestamp",
			Message: "is required for incremental sync",
		}})
	}

	seen := make(map[string]struct{}, len(r.PendingCalculations))
	for i, pc := range r.PendingCalculations {
		if pc.ID == "" {
			return ierr.NewValidationError([]ierr.FieldError{{
				Field:   fmt.Sprintf("pending_calculations[%d].id", i),
				Message: "is required",
			}})
		}
		if _, dup := seen[pc.ID]; dup {
			return ierr.NewErrorf("duplicate pending calculation id %s", pc.ID).
				WithHint("Pending calculation ids must be unique within a sync request").
				Mark(ierr.ErrValidation)
		}
		seen[pc.ID] = struct{}{}
		for _, dep := range pc.DependsOn {
			if err := dep.EntityType.Validate(); err != nil {
				return err
			}
			if dep.EntityID == "" {
				return ierr.NewValidationError([]ierr.FieldError{{
					Field:   fmt.Sprintf("pending_calculations[%d].depends_on.entity_id", i),
					Message: "is required",
				}})
			}
		}
	}
	return nil
}

// SyncedCalculation is a pending calculation that ran successfully
type SyncedCalculation struct {
	ID     string               `json:"id"`
	Result *CalculationResponse `json:"result"`
}

// FailedCalculation is a pending calculation that did not run or failed
type FailedCalculation struct {
	ID        string         `json:"id"`
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// ConflictResponse describes a conflict detected during sync
type ConflictResponse struct {
	ID             string                    `json:"id"`
	EntityType     types.SyncEntityType      `json:"entity_type"`
	EntityID       string                    `json:"entity_id"`
	ServerRevision int64                     `json:"server_revision"`
	ClientRevision int64                     `json:"client_revision"`
	CalculationID  string                    `json:"calculation_id,omitempty"`
	Resolution     *types.ConflictResolution `json:"resolution,omitempty"`
	Status         types.ConflictStatus      `json:"status"`
}

func NewConflictResponse(c *syncstate.Conflict) ConflictResponse {
	return ConflictResponse{
		ID:             c.ID,
		EntityType:     c.EntityType,
		EntityID:       c.EntityID,
		ServerRevision: c.ServerRevision,
		ClientRevision: c.ClientRevision,
		CalculationID:  c.CalculationID,
		Resolution:     c.Resolution,
		Status:         c.ConflictStatus,
	}
}

// SyncResponse is the diff and batch outcome of a sync call
type SyncResponse struct {
	Success     bool           `json:"success"`
	Mode        types.SyncMode `json:"mode"`
	Destructive bool           `json:"destructive"`

	UpdatedTaxRules []*taxrule.TaxRule                `json:"updated_tax_rules"`
	UpdatedTaxForms []*taxform.TaxForm                `json:"updated_tax_forms"`
	UpdatedSettings []*taxsettings.CompanyTaxSettings `json:"updated_settings"`

	SyncedCalculations int                 `json:"synced_calculations"`
	Calculations       []SyncedCalculation `json:"calculations"`
	FailedCalculations []FailedCalculation `json:"failed_calculations"`
	Conflicts          []ConflictResponse  `json:"conflicts"`

	// server_timestamp is the cursor to send as last_sync_timestamp next time
	ServerTimestamp time.Time `json:"server_timestamp"`
}

// SyncStatusResponse reports where a device stands
type SyncStatusResponse struct {
	DeviceID          string           `json:"device_id"`
	LastSyncAt        *time.Time       `json:"last_sync_at"`
	LastSyncTimestamp *time.Time       `json:"last_sync_timestamp,omitempty"`
	PendingChanges    int              `json:"pending_changes"`
	Status            types.SyncStatus `json:"status"`
}

// ResolveConflictRequest picks a strategy for one conflicting entity
type ResolveConflictRequest struct {
	DeviceID   string                    `json:"device_id" validate:"required"`
	EntityType types.SyncEntityType      `json:"entity_type" validate:"required"`
	EntityID   string                    `json:"entity_id" validate:"required"`
	Resolution *types.ConflictResolution `json:"resolution" validate:"required"`

	// company_id is required only when the entity is in conflict for several companies of the device
	CompanyID string `json:"company_id,omitempty"`
}

func (r ResolveConflictRequest) Validate() error {
	if r.Resolution == nil {
		return ierr.NewValidationError([]ierr.FieldError{{
			Field:   "resolution",
			Message: "is required, one of server_wins, client_wins or manual_merge",
		}})
	}
	if err := r.EntityType.Validate(); err != nil {
		return err
	}
	return r.Resolution.Validate()
}

// ResolveConflictResponse confirms the applied strategy
type ResolveConflictResponse struct {
	Success    bool                     `json:"success"`
	ConflictID string                   `json:"conflict_id"`
	Resolution types.ConflictResolution `json:"resolution"`
	Status     types.ConflictStatus     `json:"status"`
	Timestamp  time.Time                `json:"timestamp"`
}
