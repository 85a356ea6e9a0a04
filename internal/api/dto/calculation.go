package dto

import (
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/vat"
	"github.com/shopspring/decimal"
)

// CalculationRequest is a batch of line items to price for a company
type CalculationRequest struct {
	// company_id is the company whose selected tax rules apply (required)
	CompanyID string `json:"company_id" validate:"required"`

	// items are the priced positions, at least one is required
	Items []vat.LineItem `json:"items" validate:"required,min=1"`

	// invoice_type is optional and feeds invoice_type conditions
	InvoiceType types.InvoiceType `json:"invoice_type,omitempty" validate:"omitempty,oneof=sale purchase correction advance"`
}

// Facts derives the attributes rule conditions are evaluated against
func (r CalculationRequest) Facts(net, gross decimal.Decimal) taxrule.Facts {
	return taxrule.Facts{
		InvoiceType: r.InvoiceType,
		TotalNet:    net,
		TotalGross:  gross,
		ItemCount:   len(r.Items),
		VatRates:    vat.Rates(r.Items),
	}
}

// AppliedRule records a tax rule that contributed to a result
type AppliedRule struct {
	RuleID      string            `json:"rule_id"`
	RuleName    string            `json:"rule_name"`
	RuleType    types.TaxRuleType `json:"rule_type"`
	TaxFormID   string            `json:"tax_form_id"`
	Amount      *decimal.Decimal  `json:"amount,omitempty" swaggertype:"string"`
	Description string            `json:"description"`
}

// CalculationResponse is the outcome of a calculation.
// It carries no timestamps so identical input yields identical output.
type CalculationResponse struct {
	TotalNet     decimal.Decimal      `json:"total_net" swaggertype:"string"`
	TotalVat     decimal.Decimal      `json:"total_vat" swaggertype:"string"`
	TotalGross   decimal.Decimal      `json:"total_gross" swaggertype:"string"`
	VatBreakdown []vat.BreakdownEntry `json:"vat_breakdown"`
	AppliedRules []AppliedRule        `json:"applied_rules"`
	Confidence   types.Confidence     `json:"confidence"`
	Success      bool                 `json:"success"`
	ErrorCode    string               `json:"error_code,omitempty"`
}

// ValidateCalculationRequest asks for validation only, company_id is optional
type ValidateCalculationRequest struct {
	CompanyID   string            `json:"company_id,omitempty"`
	Items       []vat.LineItem    `json:"items"`
	InvoiceType types.InvoiceType `json:"invoice_type,omitempty"`
}

// ToCalculationRequest widens the request for the validation gate
func (r ValidateCalculationRequest) ToCalculationRequest() CalculationRequest {
	return CalculationRequest{
		CompanyID:   r.CompanyID,
		Items:       r.Items,
		InvoiceType: r.InvoiceType,
	}
}

// ValidationResult lists every violation found in one pass
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ierr.FieldError `json:"errors"`
}
