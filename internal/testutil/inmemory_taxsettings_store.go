package testutil

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/samber/lo"
)

// InMemoryTaxSettingsStore implements taxsettings.Repository
type InMemoryTaxSettingsStore struct {
	*InMemoryStore[*taxsettings.CompanyTaxSettings]
}

func NewInMemoryTaxSettingsStore() *InMemoryTaxSettingsStore {
	return &InMemoryTaxSettingsStore{
		InMemoryStore: NewInMemoryStore[*taxsettings.CompanyTaxSettings](),
	}
}

func taxSettingsSortFn(i, j *taxsettings.CompanyTaxSettings) bool {
	return i.ID < j.ID
}

func (s *InMemoryTaxSettingsStore) list(ctx context.Context, filterFn FilterFunc[*taxsettings.CompanyTaxSettings]) []*taxsettings.CompanyTaxSettings {
	return lo.Map(s.List(ctx, filterFn, taxSettingsSortFn), func(ts *taxsettings.CompanyTaxSettings, _ int) *taxsettings.CompanyTaxSettings {
		cp := *ts
		return &cp
	})
}

func (s *InMemoryTaxSettingsStore) Create(ctx context.Context, ts *taxsettings.CompanyTaxSettings) error {
	if ts == nil {
		return ierr.NewError("tax settings cannot be nil").
			WithHint("Tax settings data is required").
			Mark(ierr.ErrValidation)
	}
	if _, exists := s.Find(ctx, func(_ context.Context, item *taxsettings.CompanyTaxSettings) bool {
		return item.TenantID == ts.TenantID && item.CompanyID == ts.CompanyID && item.TaxFormID == ts.TaxFormID
	}); exists {
		return ierr.NewError("company tax settings already exist").
			WithHint("The company already has settings for this tax form").
			WithReportableDetails(map[string]any{
				"company_id":  ts.CompanyID,
				"tax_form_id": ts.TaxFormID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	cp := *ts
	return s.InMemoryStore.Create(ctx, ts.ID, &cp)
}

func (s *InMemoryTaxSettingsStore) Get(ctx context.Context, tenantID, id string) (*taxsettings.CompanyTaxSettings, error) {
	ts, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || ts.TenantID != tenantID {
		return nil, ierr.NewErrorf("tax settings %s not found", id).
			WithHintf("Company tax settings with ID %s were not found", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *ts
	return &cp, nil
}

func (s *InMemoryTaxSettingsStore) GetByCompanyAndForm(ctx context.Context, tenantID, companyID, taxFormID string) (*taxsettings.CompanyTaxSettings, error) {
	ts, ok := s.Find(ctx, func(_ context.Context, item *taxsettings.CompanyTaxSettings) bool {
		return item.TenantID == tenantID && item.CompanyID == companyID && item.TaxFormID == taxFormID
	})
	if !ok {
		return nil, ierr.NewError("tax settings not found").
			WithHint("The company has no settings for this tax form").
			WithReportableDetails(map[string]any{
				"company_id":  companyID,
				"tax_form_id": taxFormID,
			}).
			Mark(ierr.ErrNotFound)
	}
	cp := *ts
	return &cp, nil
}

func (s *InMemoryTaxSettingsStore) Update(ctx context.Context, ts *taxsettings.CompanyTaxSettings) error {
	cp := *ts
	if err := s.InMemoryStore.Update(ctx, ts.ID, &cp); err != nil {
		return ierr.WithError(err).
			WithHintf("Company tax settings with ID %s were not found", ts.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryTaxSettingsStore) ListSelected(ctx context.Context, tenantID, companyID string) ([]*taxsettings.CompanyTaxSettings, error) {
	return s.list(ctx, func(_ context.Context, ts *taxsettings.CompanyTaxSettings) bool {
		return ts.TenantID == tenantID && ts.CompanyID == companyID && ts.IsSelected
	}), nil
}

func (s *InMemoryTaxSettingsStore) ListByCompany(ctx context.Context, tenantID, companyID string) ([]*taxsettings.CompanyTaxSettings, error) {
	return s.list(ctx, func(_ context.Context, ts *taxsettings.CompanyTaxSettings) bool {
		return ts.TenantID == tenantID && ts.CompanyID == companyID
	}), nil
}

func (s *InMemoryTaxSettingsStore) ListUpdatedSince(ctx context.Context, tenantID, companyID string, since time.Time) ([]*taxsettings.CompanyTaxSettings, error) {
	return s.list(ctx, func(_ context.Context, ts *taxsettings.CompanyTaxSettings) bool {
		return ts.TenantID == tenantID && ts.CompanyID == companyID && !ts.UpdatedAt.Before(since)
	}), nil
}
