package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flexprice/taxsync/internal/types"
)

// Event is one append-only audit record of a sync operation
type Event struct {
	ID                 string                   `db:"id" json:"id"`
	TenantID           string                   `db:"tenant_id" json:"tenant_id"`
	EventType          types.AuditEventType     `db:"event_type" json:"event_type"`
	Outcome            types.AuditOutcome       `db:"outcome" json:"outcome"`
	CompanyID          string                   `db:"company_id" json:"company_id,omitempty"`
	DeviceID           string                   `db:"device_id" json:"device_id"`
	Mode               types.SyncMode           `db:"mode" json:"mode,omitempty"`
	Destructive        bool                     `db:"destructive" json:"destructive"`
	Resolution         types.ConflictResolution `db:"resolution" json:"resolution,omitempty"`
	SyncedCalculations int                      `db:"synced_calculations" json:"synced_calculations"`
	FailedCalculations int                      `db:"failed_calculations" json:"failed_calculations"`
	Conflicts          int                      `db:"conflicts" json:"conflicts"`
	ErrorCode          string                   `db:"error_code" json:"error_code,omitempty"`
	RequestID          string                   `db:"request_id" json:"request_id,omitempty"`
	Details            Details                  `db:"details" json:"details,omitempty"`
	OccurredAt         time.Time                `db:"occurred_at" json:"occurred_at"`
}

// Details carries event specific attributes such as the client_wins conflicts
type Details map[string]any

// Value implements driver.Valuer
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner
func (d *Details) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported details column type %T", src)
	}
}
