package taxrule

import (
	"time"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/shopspring/decimal"
)

// TaxRule is a condition to effect pair under a tax form
type TaxRule struct {
	ID                string                  `db:"id" json:"id"`
	TaxFormID         string                  `db:"tax_form_id" json:"tax_form_id"`
	Name              string                  `db:"name" json:"name"`
	Description       string                  `db:"description" json:"description,omitempty"`
	RuleType          types.TaxRuleType       `db:"rule_type" json:"rule_type"`
	Conditions        Conditions              `db:"conditions" json:"conditions"`
	CalculationMethod types.CalculationMethod `db:"calculation_method" json:"calculation_method"`
	Value             decimal.Decimal         `db:"value" json:"value" swaggertype:"string"`
	Priority          int                     `db:"priority" json:"priority"`
	ValidFrom         time.Time               `db:"valid_from" json:"valid_from"`
	ValidTo           *time.Time              `db:"valid_to" json:"valid_to,omitempty"`
	IsActive          bool                    `db:"is_active" json:"is_active"`
	types.BaseModel
}

// IsApplicableAt reports is_active and valid_from <= t and (valid_to is nil or valid_to >= t)
func (r *TaxRule) IsApplicableAt(t time.Time) bool {
	if !r.IsActive || r.Status != types.StatusPublished {
		return false
	}
	if r.ValidFrom.After(t) {
		return false
	}
	return r.ValidTo == nil || !r.ValidTo.Before(t)
}

// Revision is the monotonically increasing version devices acknowledge
func (r *TaxRule) Revision() int64 {
	return r.UpdatedAt.UnixNano()
}

// Validate checks the rule definition, conditions included
func (r *TaxRule) Validate() error {
	if err := r.RuleType.Validate(); err != nil {
		return err
	}
	if err := r.CalculationMethod.Validate(); err != nil {
		return err
	}
	if r.ValidTo != nil && r.ValidTo.Before(r.ValidFrom) {
		return ierr.NewError("valid_to before valid_from").
			WithHint("The validity window cannot end before it starts").
			Mark(ierr.ErrValidation)
	}
	if r.Value.IsNegative() {
		return ierr.NewError("negative rule value").
			WithHint("Rule value must not be negative").
			Mark(ierr.ErrValidation)
	}
	if r.CalculationMethod == types.CalculationMethodPercentage && r.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("percentage above 100").
			WithHint("A percentage rule value must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	return r.Conditions.Validate()
}

// WithConditions returns a copy of the rule with extra conditions appended
func (r *TaxRule) WithConditions(extra Conditions) *TaxRule {
	cp := *r
	if len(extra) == 0 {
		return &cp
	}
	cp.Conditions = make(Conditions, 0, len(r.Conditions)+len(extra))
	cp.Conditions = append(cp.Conditions, r.Conditions...)
	cp.Conditions = append(cp.Conditions, extra...)
	return &cp
}
