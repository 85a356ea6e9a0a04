package service

import (
	"time"

	"github.com/flexprice/taxsync/internal/domain/company"
	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	"github.com/flexprice/taxsync/internal/testutil"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/vat"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// serviceSuite wires ServiceParams over the in-memory stores and seeds fixtures
type serviceSuite struct {
	testutil.BaseServiceTestSuite
	params ServiceParams
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = s.newParams()
}

func (s *serviceSuite) newParams() ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetClock(),
		s.GetCache(),
		s.GetSentry(),
		stores.CompanyRepo,
		stores.TaxFormRepo,
		stores.TaxRuleRepo,
		stores.TaxSettingsRepo,
		stores.SyncStateRepo,
		stores.ConflictRepo,
		s.GetLeaseManager(),
		s.GetAuditEmitter(),
	)
}

func (s *serviceSuite) baseModel() types.BaseModel {
	base := types.GetDefaultBaseModel(s.GetContext())
	base.CreatedAt = s.GetNow()
	base.UpdatedAt = s.GetNow()
	return base
}

func (s *serviceSuite) createCompany(id string) *company.Company {
	c := &company.Company{ID: id, Name: "Company " + id, NIP: "5260250274", BaseModel: s.baseModel()}
	s.Require().NoError(s.GetStores().CompanyRepo.Create(s.GetContext(), c))
	return c
}

func (s *serviceSuite) createForm(id string) *taxform.TaxForm {
	f := &taxform.TaxForm{
		ID:        id,
		Code:      "CODE-" + id,
		Name:      "Form " + id,
		Category:  types.TaxFormCategoryVAT,
		ValidFrom: s.GetNow().Add(-24 * time.Hour),
		BaseModel: s.baseModel(),
	}
	s.Require().NoError(s.GetStores().TaxFormRepo.Create(s.GetContext(), f))
	return f
}

// createRule stores an active percentage rule, mutate adjusts it before the write
func (s *serviceSuite) createRule(id, formID string, mutate func(r *taxrule.TaxRule)) *taxrule.TaxRule {
	r := &taxrule.TaxRule{
		ID:                id,
		TaxFormID:         formID,
		Name:              "Rule " + id,
		RuleType:          types.TaxRuleTypeTax,
		Conditions:        taxrule.Conditions{},
		CalculationMethod: types.CalculationMethodPercentage,
		Value:             decimal.NewFromInt(10),
		ValidFrom:         s.GetNow().Add(-time.Hour),
		IsActive:          true,
		BaseModel:         s.baseModel(),
	}
	if mutate != nil {
		mutate(r)
	}
	s.Require().NoError(s.GetStores().TaxRuleRepo.Create(s.GetContext(), r))
	return r
}

func (s *serviceSuite) selectForm(id, companyID, formID string, settings ...taxrule.Condition) *taxsettings.CompanyTaxSettings {
	ts := &taxsettings.CompanyTaxSettings{
		ID:        id,
		CompanyID: companyID,
		TaxFormID: formID,
		Settings:  lo.Ternary(settings == nil, taxrule.Conditions{}, taxrule.Conditions(settings)),
		BaseModel: s.baseModel(),
	}
	ts.Select(s.GetNow())
	s.Require().NoError(s.GetStores().TaxSettingsRepo.Create(s.GetContext(), ts))
	return ts
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func lineItem(qty, price string, rate *string) vat.LineItem {
	item := vat.LineItem{Name: "item", Quantity: dec(qty), UnitPrice: dec(price)}
	if rate != nil {
		item.VatRate = lo.ToPtr(dec(*rate))
	}
	return item
}
