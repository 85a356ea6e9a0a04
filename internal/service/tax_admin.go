package service

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/api/dto"
	"github.com/flexprice/taxsync/internal/domain/company"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/validator"
)

// TaxRuleAdminService manages companies, tax forms, rules and company settings.
// The tenant is taken from the context.
type TaxRuleAdminService interface {
	CreateCompany(ctx context.Context, req dto.CreateCompanyRequest) (*company.Company, error)

	CreateTaxForm(ctx context.Context, req dto.CreateTaxFormRequest) (*taxform.TaxForm, error)
	CloseTaxForm(ctx context.Context, id string, req dto.CloseTaxFormRequest) (*taxform.TaxForm, error)

	CreateTaxRule(ctx context.Context, req dto.CreateTaxRuleRequest) (*taxrule.TaxRule, error)
	UpdateTaxRule(ctx context.Context, id string, req dto.UpdateTaxRuleRequest) (*taxrule.TaxRule, error)

	CreateCompanyTaxSettings(ctx context.Context, companyID string, req dto.CreateCompanyTaxSettingsRequest) (*taxsettings.CompanyTaxSettings, error)
	UpdateCompanyTaxSettings(ctx context.Context, companyID, taxFormID string, req dto.UpdateCompanyTaxSettingsRequest) (*taxsettings.CompanyTaxSettings, error)
	ListCompanyTaxSettings(ctx context.Context, companyID string) ([]*taxsettings.CompanyTaxSettings, error)
}

type taxRuleAdminService struct {
	ServiceParams
	selector RuleSelector
}

func NewTaxRuleAdminService(params ServiceParams) TaxRuleAdminService {
	return &taxRuleAdminService{
		ServiceParams: params,
		selector:      NewRuleSelector(params),
	}
}

func (s *taxRuleAdminService) CreateCompany(ctx context.Context, req dto.CreateCompanyRequest) (*company.Company, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	c := req.ToCompany(ctx)
	now := s.Clock.Now()
	c.CreatedAt, c.UpdatedAt = now, now

	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()
	if err := s.CompanyRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Infow("created company", "tenant_id", c.TenantID, "company_id", c.ID)
	return c, nil
}

func (s *taxRuleAdminService) CreateTaxForm(ctx context.Context, req dto.CreateTaxFormRequest) (*taxform.TaxForm, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	form := req.ToTaxForm(ctx, s.Clock.Now())

	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()
	if err := s.TaxFormRepo.Create(ctx, form); err != nil {
		return nil, err
	}

	s.Logger.Infow("created tax form", "tenant_id", form.TenantID, "tax_form_id", form.ID, "code", form.Code)
	return form, nil
}

func (s *taxRuleAdminService) CloseTaxForm(ctx context.Context, id string, req dto.CloseTaxFormRequest) (*taxform.TaxForm, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	tenantID := types.GetTenantID(ctx)

	storeCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	form, err := s.TaxFormRepo.Get(storeCtx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := form.CloseValidity(req.ValidTo); err != nil {
		return nil, err
	}
	s.touch(ctx, &form.BaseModel)

	if err := s.TaxFormRepo.Update(storeCtx, form); err != nil {
		return nil, err
	}
	s.selector.InvalidateTenant(ctx, tenantID)

	s.Logger.Infow("closed tax form", "tenant_id", tenantID, "tax_form_id", form.ID, "valid_to", req.ValidTo)
	return form, nil
}

func (s *taxRuleAdminService) CreateTaxRule(ctx context.Context, req dto.CreateTaxRuleRequest) (*taxrule.TaxRule, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	tenantID := types.GetTenantID(ctx)

	rule := req.ToTaxRule(ctx, s.Clock.Now())
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	if _, err := s.TaxFormRepo.Get(storeCtx, tenantID, rule.TaxFormID); err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("The tax form of the rule does not exist").
				WithReportableDetails(map[string]any{"tax_form_id": rule.TaxFormID}).
				Mark(ierr.ErrValidation)
		}
		return nil, err
	}

	if err := s.TaxRuleRepo.Create(storeCtx, rule); err != nil {
		return nil, err
	}
	s.selector.InvalidateTenant(ctx, tenantID)

	s.Logger.Infow("created tax rule",
		"tenant_id", tenantID,
		"tax_rule_id", rule.ID,
		"tax_form_id", rule.TaxFormID,
		"priority", rule.Priority)
	return rule, nil
}

func (s *taxRuleAdminService) UpdateTaxRule(ctx context.Context, id string, req dto.UpdateTaxRuleRequest) (*taxrule.TaxRule, error) {
	tenantID := types.GetTenantID(ctx)

	storeCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	rule, err := s.TaxRuleRepo.Get(storeCtx, tenantID, id)
	if err != nil {
		return nil, err
	}

	req.Apply(rule)
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	s.touch(ctx, &rule.BaseModel)

	if err := s.TaxRuleRepo.Update(storeCtx, rule); err != nil {
		return nil, err
	}
	s.selector.InvalidateTenant(ctx, tenantID)

	s.Logger.Infow("updated tax rule", "tenant_id", tenantID, "tax_rule_id", rule.ID, "revision", rule.Revision())
	return rule, nil
}

func (s *taxRuleAdminService) CreateCompanyTaxSettings(ctx context.Context, companyID string, req dto.CreateCompanyTaxSettingsRequest) (*taxsettings.CompanyTaxSettings, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := req.Settings.Validate(); err != nil {
		return nil, err
	}
	tenantID := types.GetTenantID(ctx)

	storeCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	if _, err := s.CompanyRepo.FindCompany(storeCtx, tenantID, companyID); err != nil {
		return nil, err
	}
	if _, err := s.TaxFormRepo.Get(storeCtx, tenantID, req.TaxFormID); err != nil {
		return nil, err
	}

	settings := req.ToCompanyTaxSettings(ctx, companyID, s.Clock.Now())
	if err := s.TaxSettingsRepo.Create(storeCtx, settings); err != nil {
		return nil, err
	}
	s.selector.Invalidate(ctx, tenantID, companyID)

	s.Logger.Infow("created company tax settings",
		"tenant_id", tenantID,
		"company_id", companyID,
		"tax_form_id", settings.TaxFormID,
		"is_selected", settings.IsSelected)
	return settings, nil
}

func (s *taxRuleAdminService) UpdateCompanyTaxSettings(ctx context.Context, companyID, taxFormID string, req dto.UpdateCompanyTaxSettingsRequest) (*taxsettings.CompanyTaxSettings, error) {
	if req.Settings != nil {
		if err := req.Settings.Validate(); err != nil {
			return nil, err
		}
	}
	tenantID := types.GetTenantID(ctx)

	storeCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	settings, err := s.TaxSettingsRepo.GetByCompanyAndForm(storeCtx, tenantID, companyID, taxFormID)
	if err != nil {
		return nil, err
	}

	now := s.touch(ctx, &settings.BaseModel)
	if req.IsSelected != nil && *req.IsSelected != settings.IsSelected {
		if *req.IsSelected {
			settings.Select(now)
		} else {
			settings.Deselect(now)
		}
	}
	if req.Settings != nil {
		settings.Settings = *req.Settings
		if settings.Settings == nil {
			settings.Settings = taxrule.Conditions{}
		}
	}

	if err := s.TaxSettingsRepo.Update(storeCtx, settings); err != nil {
		return nil, err
	}
	s.selector.Invalidate(ctx, tenantID, companyID)

	s.Logger.Infow("updated company tax settings",
		"tenant_id", tenantID,
		"company_id", companyID,
		"tax_form_id", taxFormID,
		"is_selected", settings.IsSelected)
	return settings, nil
}

func (s *taxRuleAdminService) ListCompanyTaxSettings(ctx context.Context, companyID string) ([]*taxsettings.CompanyTaxSettings, error) {
	tenantID := types.GetTenantID(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	if _, err := s.CompanyRepo.FindCompany(ctx, tenantID, companyID); err != nil {
		return nil, err
	}
	return s.TaxSettingsRepo.ListByCompany(ctx, tenantID, companyID)
}

// touch stamps an update, updated_at strictly increases so the revision changes
// even when the clock has not moved.
func (s *taxRuleAdminService) touch(ctx context.Context, base *types.BaseModel) time.Time {
	now := s.Clock.Now().Truncate(types.TimestampResolution)
	if !now.After(base.UpdatedAt) {
		now = base.UpdatedAt.Add(types.TimestampResolution)
	}
	base.UpdatedAt = now
	base.UpdatedBy = types.GetUserID(ctx)
	return now
}
