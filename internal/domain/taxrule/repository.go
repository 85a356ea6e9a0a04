package taxrule

import (
	"context"
	"time"
)

// Repository defines the interface for tax rule persistence operations
type Repository interface {
	Create(ctx context.Context, rule *TaxRule) error
	Get(ctx context.Context, tenantID, id string) (*TaxRule, error)
	Update(ctx context.Context, rule *TaxRule) error

	// ListByTaxForm returns every rule of the form regardless of applicability
	ListByTaxForm(ctx context.Context, tenantID, taxFormID string) ([]*TaxRule, error)
	// ListUpdatedSince returns rules of the given forms with updated_at >= since
	ListUpdatedSince(ctx context.Context, tenantID string, taxFormIDs []string, since time.Time) ([]*TaxRule, error)
}
