package company

import "context"

// Repository resolves companies for a tenant
type Repository interface {
	Create(ctx context.Context, company *Company) error
	// FindCompany returns ErrNotFound when the company is absent or owned by another tenant
	FindCompany(ctx context.Context, tenantID, companyID string) (*Company, error)
}
