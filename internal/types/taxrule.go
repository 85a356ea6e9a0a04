package types

import (
	"slices"

	ierr "github.com/flexprice/taxsync/internal/errors"
)

// CalculationMethod decides how a tax rule contributes to a calculation result
type CalculationMethod string

const (
	// CalculationMethodPercentage applies value as a percentage of the net total
	CalculationMethodPercentage CalculationMethod = "percentage"
	// CalculationMethodFixed contributes value as a flat amount
	CalculationMethodFixed CalculationMethod = "fixed"
	// CalculationMethodInformational attaches the rule without an amount
	CalculationMethodInformational CalculationMethod = "informational"
)

func (m CalculationMethod) String() string {
	return string(m)
}

func (m CalculationMethod) Validate() error {
	allowedValues := []CalculationMethod{
		CalculationMethodPercentage,
		CalculationMethodFixed,
		CalculationMethodInformational,
	}
	if !slices.Contains(allowedValues, m) {
		return ierr.NewError("invalid calculation method").
			WithHint("Calculation method must be one of percentage, fixed or informational").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TaxRuleType classifies what a tax rule represents
type TaxRuleType string

const (
	TaxRuleTypeTax       TaxRuleType = "tax"
	TaxRuleTypeExemption TaxRuleType = "exemption"
	TaxRuleTypeDeduction TaxRuleType = "deduction"
	TaxRuleTypeNotice    TaxRuleType = "notice"
)

func (t TaxRuleType) String() string {
	return string(t)
}

func (t TaxRuleType) Validate() error {
	allowedValues := []TaxRuleType{
		TaxRuleTypeTax,
		TaxRuleTypeExemption,
		TaxRuleTypeDeduction,
		TaxRuleTypeNotice,
	}
	if !slices.Contains(allowedValues, t) {
		return ierr.NewError("invalid tax rule type").
			WithHint("Tax rule type must be one of tax, exemption, deduction or notice").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConditionKind is the discriminator of a rule condition
type ConditionKind string

const (
	ConditionKindEquals ConditionKind = "equals"
	ConditionKindRange  ConditionKind = "range"
	ConditionKindIn     ConditionKind = "in"
)

func (k ConditionKind) Validate() error {
	allowedValues := []ConditionKind{ConditionKindEquals, ConditionKindRange, ConditionKindIn}
	if !slices.Contains(allowedValues, k) {
		return ierr.NewError("invalid condition kind").
			WithHint("Condition kind must be one of equals, range or in").
			WithReportableDetails(map[string]any{
				"kind": k,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConditionField names a calculation fact a condition can test
type ConditionField string

const (
	ConditionFieldInvoiceType ConditionField = "invoice_type"
	ConditionFieldTotalNet    ConditionField = "total_net"
	ConditionFieldTotalGross  ConditionField = "total_gross"
	ConditionFieldItemCount   ConditionField = "item_count"
	ConditionFieldVatRate     ConditionField = "vat_rate"
)

// IsNumeric reports whether the field holds a decimal fact
func (f ConditionField) IsNumeric() bool {
	return f != ConditionFieldInvoiceType
}

func (f ConditionField) Validate() error {
	allowedValues := []ConditionField{
		ConditionFieldInvoiceType,
		ConditionFieldTotalNet,
		ConditionFieldTotalGross,
		ConditionFieldItemCount,
		ConditionFieldVatRate,
	}
	if !slices.Contains(allowedValues, f) {
		return ierr.NewError("invalid condition field").
			WithHint("Condition field must be one of invoice_type, total_net, total_gross, item_count or vat_rate").
			WithReportableDetails(map[string]any{
				"field": f,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Confidence reflects whether company specific rules backed a calculation
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)
