package postgres

import (
	"context"

	"github.com/flexprice/taxsync/internal/domain/company"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
)

type companyRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCompanyRepository(db *postgres.DB, logger *logger.Logger) company.Repository {
	return &companyRepository{db: db, logger: logger}
}

func (r *companyRepository) Create(ctx context.Context, c *company.Company) error {
	query := `
	INSERT INTO companies (
		id, tenant_id, name, nip, status, created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :tenant_id, :name, :nip, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c); err != nil {
		return postgres.WrapError(err, "company")
	}
	return nil
}

func (r *companyRepository) FindCompany(ctx context.Context, tenantID, companyID string) (*company.Company, error) {
	query := `
	SELECT id, tenant_id, name, nip, status, created_at, updated_at, created_by, updated_by
	FROM companies
	WHERE tenant_id = $1 AND id = $2`

	var c company.Company
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, tenantID, companyID); err != nil {
		return nil, postgres.WrapError(err, "company")
	}
	return &c, nil
}
