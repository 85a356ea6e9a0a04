package service

import (
	"testing"
	"time"

	"github.com/flexprice/taxsync/internal/api/dto"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/vat"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TaxRuleAdminServiceSuite struct {
	serviceSuite
	service      TaxRuleAdminService
	calculations CalculationService
}

func TestTaxRuleAdminService(t *testing.T) {
	suite.Run(t, new(TaxRuleAdminServiceSuite))
}

func (s *TaxRuleAdminServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.service = NewTaxRuleAdminService(s.params)
	s.calculations = NewCalculationService(s.params)
}

func (s *TaxRuleAdminServiceSuite) setupCompanyWithForm() (companyID, formID string) {
	c, err := s.service.CreateCompany(s.GetContext(), dto.CreateCompanyRequest{Name: "Acme", NIP: "5260250274"})
	s.Require().NoError(err)

	f, err := s.service.CreateTaxForm(s.GetContext(), dto.CreateTaxFormRequest{
		Code:     "VAT-7",
		Name:     "Monthly VAT return",
		Category: types.TaxFormCategoryVAT,
	})
	s.Require().NoError(err)

	_, err = s.service.CreateCompanyTaxSettings(s.GetContext(), c.ID, dto.CreateCompanyTaxSettingsRequest{TaxFormID: f.ID})
	s.Require().NoError(err)
	return c.ID, f.ID
}

func (s *TaxRuleAdminServiceSuite) percentageRule(formID, value string) dto.CreateTaxRuleRequest {
	return dto.CreateTaxRuleRequest{
		TaxFormID:         formID,
		Name:              "Surcharge",
		RuleType:          types.TaxRuleTypeTax,
		CalculationMethod: types.CalculationMethodPercentage,
		Value:             decimal.RequireFromString(value),
		ValidFrom:         lo.ToPtr(s.GetNow().Add(-time.Hour)),
	}
}

func (s *TaxRuleAdminServiceSuite) calculate(companyID string) *dto.CalculationResponse {
	resp, err := s.calculations.Calculate(s.GetContext(), s.GetTenantID(), dto.CalculationRequest{
		CompanyID: companyID,
		Items:     []vat.LineItem{lineItem("1", "100", nil)},
	})
	s.Require().NoError(err)
	return resp
}

func (s *TaxRuleAdminServiceSuite) TestCreateCompany() {
	c, err := s.service.CreateCompany(s.GetContext(), dto.CreateCompanyRequest{Name: "Acme"})
	s.Require().NoError(err)
	s.NotEmpty(c.ID)
	s.Equal(s.GetTenantID(), c.TenantID)
	s.Equal(s.GetNow(), c.CreatedAt)

	_, err = s.service.CreateCompany(s.GetContext(), dto.CreateCompanyRequest{Name: "Acme", NIP: "12-34"})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateCompany(s.GetContext(), dto.CreateCompanyRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *TaxRuleAdminServiceSuite) TestCreateTaxForm() {
	f, err := s.service.CreateTaxForm(s.GetContext(), dto.CreateTaxFormRequest{
		Code:     "PIT-36",
		Name:     "Annual income tax",
		Category: types.TaxFormCategoryIncomeTax,
	})
	s.Require().NoError(err)
	s.Equal(s.GetNow(), f.ValidFrom)
	s.True(f.IsActiveAt(s.GetNow()))

	_, err = s.service.CreateTaxForm(s.GetContext(), dto.CreateTaxFormRequest{Code: "PIT-36", Name: "Again", Category: types.TaxFormCategoryIncomeTax})
	s.True(ierr.IsAlreadyExists(err))

	_, err = s.service.CreateTaxForm(s.GetContext(), dto.CreateTaxFormRequest{Code: "X", Name: "Bad", Category: "customs"})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateTaxForm(s.GetContext(), dto.CreateTaxFormRequest{
		Code:      "Y",
		Name:      "Inverted",
		Category:  types.TaxFormCategoryOther,
		ValidFrom: lo.ToPtr(s.GetNow()),
		ValidTo:   lo.ToPtr(s.GetNow().Add(-time.Hour)),
	})
	s.True(ierr.IsValidation(err))
}

func (s *TaxRuleAdminServiceSuite) TestCreateTaxRule() {
	companyID, formID := s.setupCompanyWithForm()
	s.Equal(types.ConfidenceLow, s.calculate(companyID).Confidence)

	rule, err := s.service.CreateTaxRule(s.GetContext(), s.percentageRule(formID, "2"))
	s.Require().NoError(err)
	s.True(rule.IsActive)

	// creation invalidates the cached rules
	resp := s.calculate(companyID)
	s.Require().Len(resp.AppliedRules, 1)
	s.Equal("2.00", resp.AppliedRules[0].Amount.StringFixed(2))
}

func (s *TaxRuleAdminServiceSuite) TestCreateTaxRuleValidation() {
	_, formID := s.setupCompanyWithForm()

	req := s.percentageRule("form_missing", "2")
	_, err := s.service.CreateTaxRule(s.GetContext(), req)
	s.True(ierr.IsValidation(err))

	req = s.percentageRule(formID, "120")
	_, err = s.service.CreateTaxRule(s.GetContext(), req)
	s.True(ierr.IsValidation(err))

	req = s.percentageRule(formID, "2")
	req.Conditions = taxrule.Conditions{{Kind: types.ConditionKindRange, Field: types.ConditionFieldInvoiceType, Min: lo.ToPtr(decimal.Zero)}}
	_, err = s.service.CreateTaxRule(s.GetContext(), req)
	s.True(ierr.IsValidation(err))

	req = s.percentageRule(formID, "2")
	req.CalculationMethod = "compound"
	_, err = s.service.CreateTaxRule(s.GetContext(), req)
	s.True(ierr.IsValidation(err))
}

func (s *TaxRuleAdminServiceSuite) TestUpdateTaxRuleBumpsRevision() {
	companyID, formID := s.setupCompanyWithForm()
	rule, err := s.service.CreateTaxRule(s.GetContext(), s.percentageRule(formID, "2"))
	s.Require().NoError(err)
	s.calculate(companyID)
	before := rule.Revision()

	// the clock has not moved, the revision still increases
	updated, err := s.service.UpdateTaxRule(s.GetContext(), rule.ID, dto.UpdateTaxRuleRequest{
		Value: lo.ToPtr(decimal.NewFromInt(5)),
	})
	s.Require().NoError(err)
	s.Greater(updated.Revision(), before)

	resp := s.calculate(companyID)
	s.Require().Len(resp.AppliedRules, 1)
	s.Equal("5.00", resp.AppliedRules[0].Amount.StringFixed(2))

	s.GetClock().Advance(time.Minute)
	updated, err = s.service.UpdateTaxRule(s.GetContext(), rule.ID, dto.UpdateTaxRuleRequest{IsActive: lo.ToPtr(false)})
	s.Require().NoError(err)
	s.Equal(s.GetNow(), updated.UpdatedAt)
	s.Empty(s.calculate(companyID).AppliedRules)

	_, err = s.service.UpdateTaxRule(s.GetContext(), rule.ID, dto.UpdateTaxRuleRequest{Value: lo.ToPtr(decimal.NewFromInt(-1))})
	s.True(ierr.IsValidation(err))

	_, err = s.service.UpdateTaxRule(s.GetContext(), "rule_missing", dto.UpdateTaxRuleRequest{})
	s.True(ierr.IsNotFound(err))
}

func (s *TaxRuleAdminServiceSuite) TestCompanyTaxSettings() {
	companyID, formID := s.setupCompanyWithForm()
	_, err := s.service.CreateTaxRule(s.GetContext(), s.percentageRule(formID, "2"))
	s.Require().NoError(err)

	_, err = s.service.CreateCompanyTaxSettings(s.GetContext(), companyID, dto.CreateCompanyTaxSettingsRequest{TaxFormID: formID})
	s.True(ierr.IsAlreadyExists(err))

	_, err = s.service.CreateCompanyTaxSettings(s.GetContext(), "comp_missing", dto.CreateCompanyTaxSettingsRequest{TaxFormID: formID})
	s.True(ierr.IsNotFound(err))

	_, err = s.service.CreateCompanyTaxSettings(s.GetContext(), companyID, dto.CreateCompanyTaxSettingsRequest{TaxFormID: "form_missing"})
	s.True(ierr.IsNotFound(err))

	s.Len(s.calculate(companyID).AppliedRules, 1)

	s.GetClock().Advance(time.Minute)
	settings, err := s.service.UpdateCompanyTaxSettings(s.GetContext(), companyID, formID, dto.UpdateCompanyTaxSettingsRequest{
		IsSelected: lo.ToPtr(false),
	})
	s.Require().NoError(err)
	s.False(settings.IsSelected)
	s.Equal(s.GetNow(), lo.FromPtr(settings.DeactivatedAt))
	s.Empty(s.calculate(companyID).AppliedRules)

	s.GetClock().Advance(time.Minute)
	settings, err = s.service.UpdateCompanyTaxSettings(s.GetContext(), companyID, formID, dto.UpdateCompanyTaxSettingsRequest{
		IsSelected: lo.ToPtr(true),
		Settings: &taxrule.Conditions{{
			Kind:  types.ConditionKindRange,
			Field: types.ConditionFieldTotalNet,
			Min:   lo.ToPtr(decimal.NewFromInt(1000)),
		}},
	})
	s.Require().NoError(err)
	s.True(settings.IsSelected)
	s.Nil(settings.DeactivatedAt)
	// selected again but narrowed to large invoices
	s.Empty(s.calculate(companyID).AppliedRules)

	_, err = s.service.UpdateCompanyTaxSettings(s.GetContext(), companyID, formID, dto.UpdateCompanyTaxSettingsRequest{
		Settings: &taxrule.Conditions{{Kind: "regex"}},
	})
	s.True(ierr.IsValidation(err))

	list, err := s.service.ListCompanyTaxSettings(s.GetContext(), companyID)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *TaxRuleAdminServiceSuite) TestCloseTaxForm() {
	companyID, formID := s.setupCompanyWithForm()
	_, err := s.service.CreateTaxRule(s.GetContext(), s.percentageRule(formID, "2"))
	s.Require().NoError(err)

	_, err = s.service.CloseTaxForm(s.GetContext(), formID, dto.CloseTaxFormRequest{ValidTo: s.GetNow().Add(-48 * time.Hour)})
	s.True(ierr.IsValidation(err))

	s.GetClock().Advance(time.Minute)
	form, err := s.service.CloseTaxForm(s.GetContext(), formID, dto.CloseTaxFormRequest{ValidTo: s.GetNow().Add(time.Hour)})
	s.Require().NoError(err)
	s.Equal(s.GetNow().Add(time.Hour), lo.FromPtr(form.ValidTo))
	s.Equal(s.GetNow(), form.UpdatedAt)

	_, err = s.service.CloseTaxForm(s.GetContext(), "form_missing", dto.CloseTaxFormRequest{ValidTo: s.GetNow()})
	s.True(ierr.IsNotFound(err))

	s.Len(s.calculate(companyID).AppliedRules, 1)
}
