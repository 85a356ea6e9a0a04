package postgres

import (
	"context"
	"time"

	"github.com/flexprice/taxsync/internal/domain/taxrule"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/postgres"
	"github.com/lib/pq"
)

const taxRuleColumns = `id, tenant_id, tax_form_id, name, description, rule_type, conditions,
		calculation_method, value, priority, valid_from, valid_to, is_active,
		status, created_at, updated_at, created_by, updated_by`

type taxRuleRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTaxRuleRepository(db *postgres.DB, logger *logger.Logger) taxrule.Repository {
	return &taxRuleRepository{db: db, logger: logger}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *taxrule.TaxRule) error {
	query := `
	INSERT INTO tax_rules (` + taxRuleColumns + `) VALUES (
		:id, :tenant_id, :tax_form_id, :name, :description, :rule_type, :conditions,
		:calculation_method, :value, :priority, :valid_from, :valid_to, :is_active,
		:status, :created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, rule); err != nil {
		return postgres.WrapError(err, "tax rule")
	}
	return nil
}

func (r *taxRuleRepository) Get(ctx context.Context, tenantID, id string) (*taxrule.TaxRule, error) {
	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules WHERE tenant_id = $1 AND id = $2`

	var rule taxrule.TaxRule
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &rule, query, tenantID, id); err != nil {
		return nil, postgres.WrapError(err, "tax rule")
	}
	return &rule, nil
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *taxrule.TaxRule) error {
	query := `
	UPDATE tax_rules SET
		name = :name, description = :description, rule_type = :rule_type, conditions = :conditions,
		calculation_method = :calculation_method, value = :value, priority = :priority,
		valid_from = :valid_from, valid_to = :valid_to, is_active = :is_active,
		status = :status, updated_at = :updated_at, updated_by = :updated_by
	WHERE tenant_id = :tenant_id AND id = :id`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, rule)
	if err != nil {
		return postgres.WrapError(err, "tax rule")
	}
	return requireRow(result, "tax rule")
}

func (r *taxRuleRepository) ListByTaxForm(ctx context.Context, tenantID, taxFormID string) ([]*taxrule.TaxRule, error) {
	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules
	WHERE tenant_id = $1 AND tax_form_id = $2
	ORDER BY id`

	rules := []*taxrule.TaxRule{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rules, query, tenantID, taxFormID); err != nil {
		return nil, postgres.WrapError(err, "tax rule")
	}
	return rules, nil
}

func (r *taxRuleRepository) ListUpdatedSince(ctx context.Context, tenantID string, taxFormIDs []string, since time.Time) ([]*taxrule.TaxRule, error) {
	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules
	WHERE tenant_id = $1 AND tax_form_id = ANY($2) AND updated_at >= $3
	ORDER BY updated_at, id`

	rules := []*taxrule.TaxRule{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rules, query, tenantID, pq.Array(taxFormIDs), since); err != nil {
		return nil, postgres.WrapError(err, "tax rule")
	}
	return rules, nil
}
