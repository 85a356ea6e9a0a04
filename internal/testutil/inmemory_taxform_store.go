package testutil

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxform"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/samber/lo"
)

// InMemoryTaxFormStore implements taxform.Repository
type InMemoryTaxFormStore struct {
	*InMemoryStore[*taxform.TaxForm]
}

func NewInMemoryTaxFormStore() *InMemoryTaxFormStore {
	return &InMemoryTaxFormStore{
		InMemoryStore: NewInMemoryStore[*taxform.TaxForm](),
	}
}

func taxFormSortFn(i, j *taxform.TaxForm) bool {
	return i.ID < j.ID
}

func copyTaxForms(items []*taxform.TaxForm) []*taxform.TaxForm {
	return lo.Map(items, func(f *taxform.TaxForm, _ int) *taxform.TaxForm {
		cp := *f
		return &cp
	})
}

func (s *InMemoryTaxFormStore) Create(ctx context.Context, f *taxform.TaxForm) error {
	if f == nil {
		return ierr.NewError("tax form cannot be nil").
			WithHint("Tax form data is required").
			Mark(ierr.ErrValidation)
	}
	if _, exists := s.Find(ctx, func(_ context.Context, item *taxform.TaxForm) bool {
		return item.TenantID == f.TenantID && item.Code == f.Code
	}); exists {
		return ierr.NewErrorf("tax form code %s already exists", f.Code).
			WithHint("A tax form with this code already exists").
			WithReportableDetails(map[string]any{"code": f.Code}).
			Mark(ierr.ErrAlreadyExists)
	}
	cp := *f
	return s.InMemoryStore.Create(ctx, f.ID, &cp)
}

func (s *InMemoryTaxFormStore) Get(ctx context.Context, tenantID, id string) (*taxform.TaxForm, error) {
	f, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || f.TenantID != tenantID {
		return nil, ierr.NewErrorf("tax form %s not found", id).
			WithHintf("Tax form with ID %s was not found", id).
			WithReportableDetails(map[string]any{"tax_form_id": id}).
			Mark(ierr.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (s *InMemoryTaxFormStore) GetByCode(ctx context.Context, tenantID, code string) (*taxform.TaxForm, error) {
	f, ok := s.Find(ctx, func(_ context.Context, item *taxform.TaxForm) bool {
		return item.TenantID == tenantID && item.Code == code
	})
	if !ok {
		return nil, ierr.NewErrorf("tax form %s not found", code).
			WithHintf("Tax form with code %s was not found", code).
			Mark(ierr.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (s *InMemoryTaxFormStore) Update(ctx context.Context, f *taxform.TaxForm) error {
	cp := *f
	if err := s.InMemoryStore.Update(ctx, f.ID, &cp); err != nil {
		return ierr.WithError(err).
			WithHintf("Tax form with ID %s was not found", f.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryTaxFormStore) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*taxform.TaxForm, error) {
	return copyTaxForms(s.List(ctx, func(_ context.Context, f *taxform.TaxForm) bool {
		return f.TenantID == tenantID && lo.Contains(ids, f.ID)
	}, taxFormSortFn)), nil
}

func (s *InMemoryTaxFormStore) ListUpdatedSince(ctx context.Context, tenantID string, ids []string, since time.Time) ([]*taxform.TaxForm, error) {
	return copyTaxForms(s.List(ctx, func(_ context.Context, f *taxform.TaxForm) bool {
		return f.TenantID == tenantID && lo.Contains(ids, f.ID) && !f.UpdatedAt.Before(since)
	}, taxFormSortFn)), nil
}
