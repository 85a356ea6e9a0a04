package postgres

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxform"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	"github.com/lib/pq"
)

const taxFormColumns = `id, tenant_id, code, name, description, category, valid_from, valid_to,
		status, created_at, updated_at, created_by, updated_by`

type taxFormRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTaxFormRepository(db *postgres.DB, logger *logger.Logger) taxform.Repository {
	return &taxFormRepository{db: db, logger: logger}
}

func (r *taxFormRepository) Create(ctx context.Context, f *taxform.TaxForm) error {
	query := `
	INSERT INTO tax_forms (` + taxFormColumns + `) VALUES (
		:id, :tenant_id, :code, :name, :description, :category, :valid_from, :valid_to,
		:status, :created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, f); err != nil {
		return postgres.WrapError(err, "tax form")
	}
	return nil
}

func (r *taxFormRepository) Get(ctx context.Context, tenantID, id string) (*taxform.TaxForm, error) {
	query := `SELECT ` + taxFormColumns + ` FROM tax_forms WHERE tenant_id = $1 AND id = $2`

	var f taxform.TaxForm
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &f, query, tenantID, id); err != nil {
		return nil, postgres.WrapError(err, "tax form")
	}
	return &f, nil
}

func (r *taxFormRepository) GetByCode(ctx context.Context, tenantID, code string) (*taxform.TaxForm, error) {
	query := `SELECT ` + taxFormColumns + ` FROM tax_forms WHERE tenant_id = $1 AND code = $2`

	var f taxform.TaxForm
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &f, query, tenantID, code); err != nil {
		return nil, postgres.WrapError(err, "tax form")
	}
	return &f, nil
}

func (r *taxFormRepository) Update(ctx context.Context, f *taxform.TaxForm) error {
	query := `
	UPDATE tax_forms SET
		name = :name, description = :description, valid_to = :valid_to,
		status = :status, updated_at = :updated_at, updated_by = :updated_by
	WHERE tenant_id = :tenant_id AND id = :id`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, f)
	if err != nil {
		return postgres.WrapError(err, "tax form")
	}
	return requireRow(result, "tax form")
}

func (r *taxFormRepository) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*taxform.TaxForm, error) {
	query := `SELECT ` + taxFormColumns + ` FROM tax_forms
	WHERE tenant_id = $1 AND id = ANY($2)
	ORDER BY id`

	forms := []*taxform.TaxForm{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &forms, query, tenantID, pq.Array(ids)); err != nil {
		return nil, postgres.WrapError(err, "tax form")
	}
	return forms, nil
}

func (r *taxFormRepository) ListUpdatedSince(ctx context.Context, tenantID string, ids []string, since time.Time) ([]*taxform.TaxForm, error) {
	query := `SELECT ` + taxFormColumns + ` FROM tax_forms
	WHERE tenant_id = $1 AND id = ANY($2) AND updated_at >= $3
	ORDER BY updated_at, id`

	forms := []*taxform.TaxForm{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &forms, query, tenantID, pq.Array(ids), since); err != nil {
		return nil, postgres.WrapError(err, "tax form")
	}
	return forms, nil
}
