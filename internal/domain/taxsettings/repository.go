package taxsettings

import (
	"context"
	"time"
)

// Repository defines the interface for company tax settings persistence operations
type Repository interface {
	// Create fails with ErrAlreadyExists on a duplicate (tenant, company, tax form)
	Create(ctx context.Context, settings *CompanyTaxSettings) error
	Get(ctx context.Context, tenantID, id string) (*CompanyTaxSettings, error)
	GetByCompanyAndForm(ctx context.Context, tenantID, companyID, taxFormID string) (*CompanyTaxSettings, error)
	Update(ctx context.Context, settings *CompanyTaxSettings) error

	// ListSelected returns the settings of the company with is_selected = true
	ListSelected(ctx context.Context, tenantID, companyID string) ([]*CompanyTaxSettings, error)
	ListByCompany(ctx context.Context, tenantID, companyID string) ([]*CompanyTaxSettings, error)
	ListUpdatedSince(ctx context.Context, tenantID, companyID string, since time.Time) ([]*CompanyTaxSettings, error)
}
