package testutil

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxrule"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/samber/lo"
)

// InMemoryTaxRuleStore implements taxrule.Repository
type InMemoryTaxRuleStore struct {
	*InMemoryStore[*taxrule.TaxRule]
}

func NewInMemoryTaxRuleStore() *InMemoryTaxRuleStore {
	return &InMemoryTaxRuleStore{
		InMemoryStore: NewInMemoryStore[*taxrule.TaxRule](),
	}
}

func taxRuleSortFn(i, j *taxrule.TaxRule) bool {
	return i.ID < j.ID
}

func copyTaxRules(items []*taxrule.TaxRule) []*taxrule.TaxRule {
	return lo.Map(items, func(r *taxrule.TaxRule, _ int) *taxrule.TaxRule {
		cp := *r
		return &cp
	})
}

func (s *InMemoryTaxRuleStore) Create(ctx context.Context, r *taxrule.TaxRule) error {
	if r == nil {
		return ierr.NewError("tax rule cannot be nil").
			WithHint("Tax rule data is required").
			Mark(ierr.ErrValidation)
	}
	cp := *r
	if err := s.InMemoryStore.Create(ctx, r.ID, &cp); err != nil {
		return ierr.WithError(err).
			WithHint("A tax rule with this identifier already exists").
			WithReportableDetails(map[string]any{"tax_rule_id": r.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryTaxRuleStore) Get(ctx context.Context, tenantID, id string) (*taxrule.TaxRule, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || r.TenantID != tenantID {
		return nil, ierr.NewErrorf("tax rule %s not found", id).
			WithHintf("Tax rule with ID %s was not found", id).
			WithReportableDetails(map[string]any{"tax_rule_id": id}).
			Mark(ierr.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryTaxRuleStore) Update(ctx context.Context, r *taxrule.TaxRule) error {
	cp := *r
	if err := s.InMemoryStore.Update(ctx, r.ID, &cp); err != nil {
		return ierr.WithError(err).
			WithHintf("Tax rule with ID %s was not found", r.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryTaxRuleStore) ListByTaxForm(ctx context.Context, tenantID, taxFormID string) ([]*taxrule.TaxRule, error) {
	return copyTaxRules(s.List(ctx, func(_ context.Context, r *taxrule.TaxRule) bool {
		return r.TenantID == tenantID && r.TaxFormID == taxFormID
	}, taxRuleSortFn)), nil
}

func (s *InMemoryTaxRuleStore) ListUpdatedSince(ctx context.Context, tenantID string, taxFormIDs []string, since time.Time) ([]*taxrule.TaxRule, error) {
	return copyTaxRules(s.List(ctx, func(_ context.Context, r *taxrule.TaxRule) bool {
		return r.TenantID == tenantID && lo.Contains(taxFormIDs, r.TaxFormID) && !r.UpdatedAt.Before(since)
	}, taxRuleSortFn)), nil
}
