package dto

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/company"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreateCompanyRequest registers a company under the current tenant
type CreateCompanyRequest struct {
	Name string `json:"name" validate:"required"`
	NIP  string `json:"nip,omitempty" validate:"omitempty,numeric,len=10"`
}

func (r *CreateCompanyRequest) ToCompany(ctx context.Context) *company.Company {
	return &company.Company{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COMPANY),
		Name:      r.Name,
		NIP:       r.NIP,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

// CreateTaxFormRequest represents the request to create a tax form
type CreateTaxFormRequest struct {
	// code is the unique identifier of the form within the tenant, e.g. VAT-7 (required)
	Code string `json:"code" validate:"required"`

	Name        string                `json:"name" validate:"required"`
	Description string                `json:"description,omitempty"`
	Category    types.TaxFormCategory `json:"category" validate:"required"`

	// valid_from defaults to now
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
}

func (r CreateTaxFormRequest) Validate() error {
	if err := r.Category.Validate(); err != nil {
		return err
	}
	if r.ValidFrom != nil && r.ValidTo != nil && r.ValidTo.Before(*r.ValidFrom) {
		return ierr.NewError("valid_to before valid_from").
			WithHint("The validity window cannot end before it starts").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateTaxFormRequest) ToTaxForm(ctx context.Context, now time.Time) *taxform.TaxForm {
	return &taxform.TaxForm{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_FORM),
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		ValidFrom:   lo.FromPtrOr(r.ValidFrom, now),
		ValidTo:     r.ValidTo,
		BaseModel:   baseModelAt(ctx, now),
	}
}

// CloseTaxFormRequest ends the validity window of a tax form
type CloseTaxFormRequest struct {
	ValidTo time.Time `json:"valid_to" validate:"required"`
}

// CreateTaxRuleRequest represents the request to create a tax rule
type CreateTaxRuleRequest struct {
	TaxFormID   string            `json:"tax_form_id" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description,omitempty"`
	RuleType    types.TaxRuleType `json:"rule_type" validate:"required"`

	// conditions must all match for the rule to apply, empty always applies
	Conditions taxrule.Conditions `json:"conditions,omitempty"`

	CalculationMethod types.CalculationMethod `json:"calculation_method" validate:"required"`

	// value is a percentage (0-100) or a fixed amount depending on calculation_method
	Value    decimal.Decimal `json:"value" swaggertype:"string"`
	Priority int             `json:"priority"`

	// valid_from defaults to now
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`

	// is_active defaults to true
	IsActive *bool `json:"is_active,omitempty"`
}

func (r *CreateTaxRuleRequest) ToTaxRule(ctx context.Context, now time.Time) *taxrule.TaxRule {
	return &taxrule.TaxRule{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RULE),
		TaxFormID:         r.TaxFormID,
		Name:              r.Name,
		Description:       r.Description,
		RuleType:          r.RuleType,
		Conditions:        lo.Ternary(r.Conditions == nil, taxrule.Conditions{}, r.Conditions),
		CalculationMethod: r.CalculationMethod,
		Value:             r.Value,
		Priority:          r.Priority,
		ValidFrom:         lo.FromPtrOr(r.ValidFrom, now),
		ValidTo:           r.ValidTo,
		IsActive:          lo.FromPtrOr(r.IsActive, true),
		BaseModel:         baseModelAt(ctx, now),
	}
}

// UpdateTaxRuleRequest updates a tax rule, only provided fields change
type UpdateTaxRuleRequest struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Conditions  *taxrule.Conditions `json:"conditions,omitempty"`
	Value       *decimal.Decimal    `json:"value,omitempty" swaggertype:"string"`
	Priority    *int                `json:"priority,omitempty"`
	ValidTo     *time.Time          `json:"valid_to,omitempty"`
	IsActive    *bool               `json:"is_active,omitempty"`
}

// Apply copies the provided fields onto rule
func (r *UpdateTaxRuleRequest) Apply(rule *taxrule.TaxRule) {
	if r.Name != nil {
		rule.Name = *r.Name
	}
	if r.Description != nil {
		rule.Description = *r.Description
	}
	if r.Conditions != nil {
		rule.Conditions = *r.Conditions
	}
	if r.Value != nil {
		rule.Value = *r.Value
	}
	if r.Priority != nil {
		rule.Priority = *r.Priority
	}
	if r.ValidTo != nil {
		rule.ValidTo = r.ValidTo
	}
	if r.IsActive != nil {
		rule.IsActive = *r.IsActive
	}
}

// CreateCompanyTaxSettingsRequest opts a company into a tax form
type CreateCompanyTaxSettingsRequest struct {
	TaxFormID string `json:"tax_form_id" validate:"required"`

	// is_selected defaults to true
	IsSelected *bool `json:"is_selected,omitempty"`

	// settings narrow every rule of the form for this company
	Settings taxrule.Conditions `json:"settings,omitempty"`
}

func (r *CreateCompanyTaxSettingsRequest) ToCompanyTaxSettings(ctx context.Context, companyID string, now time.Time) *taxsettings.CompanyTaxSettings {
	s := &taxsettings.CompanyTaxSettings{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_SETTINGS),
		CompanyID: companyID,
		TaxFormID: r.TaxFormID,
		Settings:  lo.Ternary(r.Settings == nil, taxrule.Conditions{}, r.Settings),
		BaseModel: baseModelAt(ctx, now),
	}
	if lo.FromPtrOr(r.IsSelected, true) {
		s.Select(now)
	}
	return s
}

// UpdateCompanyTaxSettingsRequest selects or deselects a form or replaces its settings
type UpdateCompanyTaxSettingsRequest struct {
	IsSelected *bool               `json:"is_selected,omitempty"`
	Settings   *taxrule.Conditions `json:"settings,omitempty"`
}

func baseModelAt(ctx context.Context, now time.Time) types.BaseModel {
	base := types.GetDefaultBaseModel(ctx)
	base.CreatedAt = now
	base.UpdatedAt = now
	return base
}
