package service

import (
	"testing"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type RuleSelectorSuite struct {
	serviceSuite
	selector RuleSelector
}

func TestRuleSelector(t *testing.T) {
	suite.Run(t, new(RuleSelectorSuite))
}

func (s *RuleSelectorSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.selector = NewRuleSelector(s.params)

	s.createCompany("comp_1")
	s.createForm("form_a")
	s.createForm("form_b")
	s.selectForm("ts_a", "comp_1", "form_a")
	s.selectForm("ts_b", "comp_1", "form_b")
}

func ruleIDs(rules []*taxrule.TaxRule) []string {
	return lo.Map(rules, func(r *taxrule.TaxRule, _ int) string { return r.ID })
}

func (s *RuleSelectorSuite) TestOrdering() {
	now := s.GetNow()
	s.createRule("rule_c", "form_a", func(r *taxrule.TaxRule) { r.Priority = 1 })
	s.createRule("rule_b", "form_b", func(r *taxrule.TaxRule) { r.Priority = 1 })
	s.createRule("rule_newer", "form_a", func(r *taxrule.TaxRule) {
		r.Priority = 1
		r.ValidFrom = now.Add(-time.Minute)
	})
	s.createRule("rule_top", "form_b", func(r *taxrule.TaxRule) { r.Priority = 9 })

	rules, err := s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", now)
	s.Require().NoError(err)
	// priority desc, then valid_from desc, then id asc
	s.Equal([]string{"rule_top", "rule_newer", "rule_b", "rule_c"}, ruleIDs(rules))
}

func (s *RuleSelectorSuite) TestFiltersByAsOf() {
	now := s.GetNow()
	s.createRule("rule_now", "form_a", nil)
	s.createRule("rule_next_month", "form_a", func(r *taxrule.TaxRule) { r.ValidFrom = now.AddDate(0, 1, 0) })

	rules, err := s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", now)
	s.Require().NoError(err)
	s.Equal([]string{"rule_now"}, ruleIDs(rules))

	// the cached candidates are filtered again for a later date
	rules, err = s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", now.AddDate(0, 2, 0))
	s.Require().NoError(err)
	s.ElementsMatch([]string{"rule_now", "rule_next_month"}, ruleIDs(rules))
}

func (s *RuleSelectorSuite) TestMergesSettingsConditions() {
	s.createCompany("comp_2")
	narrowing := taxrule.Condition{Kind: types.ConditionKindEquals, Field: types.ConditionFieldInvoiceType, Value: "sale"}
	s.selectForm("ts_c2", "comp_2", "form_a", narrowing)
	s.createRule("rule_a", "form_a", func(r *taxrule.TaxRule) {
		r.Conditions = taxrule.Conditions{{Kind: types.ConditionKindIn, Field: types.ConditionFieldVatRate, Values: []string{"23"}}}
	})

	rules, err := s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_2", s.GetNow())
	s.Require().NoError(err)
	s.Require().Len(rules, 1)
	s.Len(rules[0].Conditions, 2)
	s.Equal(narrowing, rules[0].Conditions[1])

	// the stored rule is untouched
	stored, err := s.GetStores().TaxRuleRepo.Get(s.GetContext(), s.GetTenantID(), "rule_a")
	s.Require().NoError(err)
	s.Len(stored.Conditions, 1)

	rules, err = s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules[0].Conditions, 1)
}

func (s *RuleSelectorSuite) TestDeselectedFormsAreIgnored() {
	s.createCompany("comp_2")
	ts := s.selectForm("ts_c2", "comp_2", "form_a")
	ts.Deselect(s.GetNow())
	s.Require().NoError(s.GetStores().TaxSettingsRepo.Update(s.GetContext(), ts))
	s.createRule("rule_a", "form_a", nil)

	rules, err := s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_2", s.GetNow())
	s.Require().NoError(err)
	s.Empty(rules)
}

func (s *RuleSelectorSuite) TestCacheAndInvalidation() {
	s.createRule("rule_a", "form_a", nil)

	rules, err := s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules, 1)

	// written behind the selector's back, served stale until invalidated
	s.createRule("rule_b", "form_a", nil)
	rules, err = s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules, 1)

	s.selector.Invalidate(s.GetContext(), s.GetTenantID(), "comp_1")
	rules, err = s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules, 2)

	s.createRule("rule_c", "form_b", nil)
	s.selector.InvalidateTenant(s.GetContext(), s.GetTenantID())
	rules, err = s.selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules, 3)
}

func (s *RuleSelectorSuite) TestInvalidateTenantKeepsOtherTenants() {
	key := applicableRulesKey("tenant_other", "comp_x")
	s.GetCache().Set(s.GetContext(), key, []*taxrule.TaxRule{}, time.Minute)

	s.selector.InvalidateTenant(s.GetContext(), s.GetTenantID())

	_, ok := s.GetCache().Get(s.GetContext(), key)
	s.True(ok)
}

func (s *RuleSelectorSuite) TestWithoutCache() {
	params := s.params
	params.Cache = nil
	selector := NewRuleSelector(params)

	s.createRule("rule_a", "form_a", nil)
	rules, err := selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules, 1)

	s.createRule("rule_b", "form_a", nil)
	rules, err = selector.SelectApplicable(s.GetContext(), s.GetTenantID(), "comp_1", s.GetNow())
	s.Require().NoError(err)
	s.Len(rules, 2)

	// no-ops without a cache
	selector.Invalidate(s.GetContext(), s.GetTenantID(), "comp_1")
	selector.InvalidateTenant(s.GetContext(), s.GetTenantID())
}
