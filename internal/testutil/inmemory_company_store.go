package testutil

import (
	"context"

	"github.com/flexprice/taxsync/internal/domain/company"
	ierr "github.com/flexprice/taxsync/internal/errors"
)

// InMemoryCompanyStore implements company.Repository
type InMemoryCompanyStore struct {
	*InMemoryStore[*company.Company]
}

func NewInMemoryCompanyStore() *InMemoryCompanyStore {
	return &InMemoryCompanyStore{
		InMemoryStore: NewInMemoryStore[*company.Company](),
	}
}

func (s *InMemoryCompanyStore) Create(ctx context.Context, c *company.Company) error {
	if c == nil {
		return ierr.NewError("company cannot be nil").
			WithHint("Company data is required").
			Mark(ierr.ErrValidation)
	}
	cp := *c
	if err := s.InMemoryStore.Create(ctx, c.ID, &cp); err != nil {
		return ierr.WithError(err).
			WithHint("A company with this identifier already exists").
			WithReportableDetails(map[string]any{"company_id": c.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryCompanyStore) FindCompany(ctx context.Context, tenantID, companyID string) (*company.Company, error) {
	c, err := s.InMemoryStore.Get(ctx, companyID)
	if err != nil || !c.BelongsTo(tenantID) {
		return nil, ierr.NewErrorf("company %s not found", companyID).
			WithHintf("Company with ID %s was not found", companyID).
			WithReportableDetails(map[string]any{"company_id": companyID}).
			Mark(ierr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}
