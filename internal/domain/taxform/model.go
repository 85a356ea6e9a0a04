package taxform

import (
	"time"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
)

// TaxForm is a tax regime a company can opt into
type TaxForm struct {
	ID          string                `db:"id" json:"id"`
	Code        string                `db:"code" json:"code"`
	Name        string                `db:"name" json:"name"`
	Description string                `db:"description" json:"description,omitempty"`
	Category    types.TaxFormCategory `db:"category" json:"category"`
	ValidFrom   time.Time             `db:"valid_from" json:"valid_from"`
	ValidTo     *time.Time            `db:"valid_to" json:"valid_to,omitempty"`
	types.BaseModel
}

// IsActiveAt reports whether the form is published and its validity window covers t
func (f *TaxForm) IsActiveAt(t time.Time) bool {
	if f.Status != types.StatusPublished {
		return false
	}
	if f.ValidFrom.After(t) {
		return false
	}
	return f.ValidTo == nil || !f.ValidTo.Before(t)
}

// Revision is the monotonically increasing version devices acknowledge
func (f *TaxForm) Revision() int64 {
	return f.UpdatedAt.UnixNano()
}

// CloseValidity ends the validity window, the only mutation allowed once rules exist
func (f *TaxForm) CloseValidity(validTo time.Time) error {
	if validTo.Before(f.ValidFrom) {
		return ierr.NewError("valid_to before valid_from").
			WithHint("The validity window cannot end before it starts").
			WithReportableDetails(map[string]any{
				"valid_from": f.ValidFrom,
				"valid_to":   validTo,
			}).
			Mark(ierr.ErrValidation)
	}
	f.ValidTo = &validTo
	return nil
}
