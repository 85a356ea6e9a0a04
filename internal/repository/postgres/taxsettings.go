package postgres

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxsettings"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
)

const taxSettingsColumns = `id, tenant_id, company_id, tax_form_id, is_selected, settings,
		activated_at, deactivated_at, status, created_at, updated_at, created_by, updated_by`

type taxSettingsRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTaxSettingsRepository(db *postgres.DB, logger *logger.Logger) taxsettings.Repository {
	return &taxSettingsRepository{db: db, logger: logger}
}

func (r *taxSettingsRepository) Create(ctx context.Context, s *taxsettings.CompanyTaxSettings) error {
	query := `
	INSERT INTO company_tax_settings (` + taxSettingsColumns + `) VALUES (
		:id, :tenant_id, :company_id, :tax_form_id, :is_selected, :settings,
		:activated_at, :deactivated_at, :status, :created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, s); err != nil {
		return postgres.WrapError(err, "company tax settings")
	}
	return nil
}

func (r *taxSettingsRepository) Get(ctx context.Context, tenantID, id string) (*taxsettings.CompanyTaxSettings, error) {
	query := `SELECT ` + taxSettingsColumns + ` FROM company_tax_settings WHERE tenant_id = $1 AND id = $2`

	var s taxsettings.CompanyTaxSettings
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &s, query, tenantID, id); err != nil {
		return nil, postgres.WrapError(err, "company tax settings")
	}
	return &s, nil
}

func (r *taxSettingsRepository) GetByCompanyAndForm(ctx context.Context, tenantID, companyID, taxFormID string) (*taxsettings.CompanyTaxSettings, error) {
	query := `SELECT ` + taxSettingsColumns + ` FROM company_tax_settings
	WHERE tenant_id = $1 AND company_id = $2 AND tax_form_id = $3`

	var s taxsettings.CompanyTaxSettings
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &s, query, tenantID, companyID, taxFormID); err != nil {
		return nil, postgres.WrapError(err, "company tax settings")
	}
	return &s, nil
}

func (r *taxSettingsRepository) Update(ctx context.Context, s *taxsettings.CompanyTaxSettings) error {
	query := `
	UPDATE company_tax_settings SET
		is_selected = :is_selected, settings = :settings,
		activated_at = :activated_at, deactivated_at = :deactivated_at,
		status = :status, updated_at = :updated_at, updated_by = :updated_by
	WHERE tenant_id = :tenant_id AND id = :id`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, s)
	if err != nil {
		return postgres.WrapError(err, "company tax settings")
	}
	return requireRow(result, "company tax settings")
}

func (r *taxSettingsRepository) ListSelected(ctx context.Context, tenantID, companyID string) ([]*taxsettings.CompanyTaxSettings, error) {
	return r.list(ctx, `WHERE tenant_id = $1 AND company_id = $2 AND is_selected ORDER BY id`, tenantID, companyID)
}

func (r *taxSettingsRepository) ListByCompany(ctx context.Context, tenantID, companyID string) ([]*taxsettings.CompanyTaxSettings, error) {
	return r.list(ctx, `WHERE tenant_id = $1 AND company_id = $2 ORDER BY id`, tenantID, companyID)
}

func (r *taxSettingsRepository) ListUpdatedSince(ctx context.Context, tenantID, companyID string, since time.Time) ([]*taxsettings.CompanyTaxSettings, error) {
	return r.list(ctx, `WHERE tenant_id = $1 AND company_id = $2 AND updated_at >= $3 ORDER BY updated_at, id`, tenantID, companyID, since)
}

func (r *taxSettingsRepository) list(ctx context.Context, where string, args ...interface{}) ([]*taxsettings.CompanyTaxSettings, error) {
	query := `SELECT ` + taxSettingsColumns + ` FROM company_tax_settings ` + where

	settings := []*taxsettings.CompanyTaxSettings{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &settings, query, args...); err != nil {
		return nil, postgres.WrapError(err, "company tax settings")
	}
	return settings, nil
}
