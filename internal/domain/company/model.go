package company

import (
	"github.com/flexprice/taxsync/internal/types"
)

// Company is the tenant scoped owner of tax settings and devices
type Company struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	// NIP is the Polish tax identification number
	NIP string `db:"nip" json:"nip,omitempty"`
	types.BaseModel
}

// BelongsTo reports whether the company is owned by the tenant
func (c *Company) BelongsTo(tenantID string) bool {
	return c != nil && c.TenantID == tenantID
}
