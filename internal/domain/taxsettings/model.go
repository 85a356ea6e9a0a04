package taxsettings

import (
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/types"
)

// CompanyTaxSettings is a company's opt-in to a tax form.
// There is at most one row per (tenant_id, company_id, tax_form_id).
type CompanyTaxSettings struct {
	ID         string `db:"id" json:"id"`
	CompanyID  string `db:"company_id" json:"company_id"`
	TaxFormID  string `db:"tax_form_id" json:"tax_form_id"`
	IsSelected bool   `db:"is_selected" json:"is_selected"`
	// Settings narrow every rule of the form for this company
	Settings      taxrule.Conditions `db:"settings" json:"settings"`
	ActivatedAt   *time.Time         `db:"activated_at" json:"activated_at,omitempty"`
	DeactivatedAt *time.Time         `db:"deactivated_at" json:"deactivated_at,omitempty"`
	types.BaseModel
}

// Select opts the company into the form at t
func (s *CompanyTaxSettings) Select(t time.Time) {
	s.IsSelected = true
	s.ActivatedAt = &t
	s.DeactivatedAt = nil
}

// Deselect opts the company out of the form at t
func (s *CompanyTaxSettings) Deselect(t time.Time) {
	s.IsSelected = false
	s.DeactivatedAt = &t
}

// Revision is the monotonically increasing version devices acknowledge
func (s *CompanyTaxSettings) Revision() int64 {
	return s.UpdatedAt.UnixNano()
}
