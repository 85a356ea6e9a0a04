package service

import (
	"context"
	"sort"
	"time"

	"github.com/flexprice/taxsync/internal/cache"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/samber/lo"
)

// RuleSelector resolves the tax rules that apply to a company at a point in time
type RuleSelector interface {
	// SelectApplicable returns the rules of the company's selected forms that are
	// applicable at asOf, ordered by priority desc, valid_from desc, id asc.
	// Company settings conditions are merged into each rule.
	SelectApplicable(ctx context.Context, tenantID, companyID string, asOf time.Time) ([]*taxrule.TaxRule, error)
	// Invalidate drops the cached rules of one company
	Invalidate(ctx context.Context, tenantID, companyID string)
	// InvalidateTenant drops the cached rules of every company of the tenant
	InvalidateTenant(ctx context.Context, tenantID string)
}

type ruleSelector struct {
	ServiceParams
}

func NewRuleSelector(params ServiceParams) RuleSelector {
	return &ruleSelector{ServiceParams: params}
}

func applicableRulesKey(tenantID, companyID string) string {
	return cache.GenerateKey(cache.PrefixApplicableRules, tenantID, companyID)
}

func (s *ruleSelector) SelectApplicable(ctx context.Context, tenantID, companyID string, asOf time.Time) ([]*taxrule.TaxRule, error) {
	candidates, err := s.candidates(ctx, tenantID, companyID)
	if err != nil {
		return nil, err
	}

	rules := lo.Filter(candidates, func(r *taxrule.TaxRule, _ int) bool {
		return r.IsApplicableAt(asOf)
	})
	sortRules(rules)
	return rules, nil
}

// candidates returns every rule of the selected forms with settings merged, read through the cache
func (s *ruleSelector) candidates(ctx context.Context, tenantID, companyID string) ([]*taxrule.TaxRule, error) {
	key := applicableRulesKey(tenantID, companyID)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, key); ok {
			if rules, ok := cached.([]*taxrule.TaxRule); ok {
				return rules, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	defer cancel()

	settings, err := s.TaxSettingsRepo.ListSelected(ctx, tenantID, companyID)
	if err != nil {
		return nil, err
	}

	var rules []*taxrule.TaxRule
	for _, ts := range settings {
		formRules, err := s.TaxRuleRepo.ListByTaxForm(ctx, tenantID, ts.TaxFormID)
		if err != nil {
			return nil, err
		}
		for _, r := range formRules {
			rules = append(rules, r.WithConditions(ts.Settings))
		}
	}
	rules = lo.UniqBy(rules, func(r *taxrule.TaxRule) string { return r.ID })

	if s.Cache != nil {
		s.Cache.Set(ctx, key, rules, s.Config.Cache.TTL)
	}
	return rules, nil
}

func (s *ruleSelector) Invalidate(ctx context.Context, tenantID, companyID string) {
	if s.Cache == nil {
		return
	}
	s.Cache.Delete(ctx, applicableRulesKey(tenantID, companyID))
}

func (s *ruleSelector) InvalidateTenant(ctx context.Context, tenantID string) {
	if s.Cache == nil {
		return
	}
	s.Cache.DeleteByPrefix(ctx, cache.GenerateKey(cache.PrefixApplicableRules, tenantID)+":")
}

// sortRules orders by priority desc, valid_from desc, id asc
func sortRules(rules []*taxrule.TaxRule) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.After(b.ValidFrom)
		}
		return a.ID < b.ID
	})
}
