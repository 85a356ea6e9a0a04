package taxform

import (
	"context"
	"time"
)

// Repository defines the interface for tax form persistence operations
type Repository interface {
	Create(ctx context.Context, form *TaxForm) error
	Get(ctx context.Context, tenantID, id string) (*TaxForm, error)
	GetByCode(ctx context.Context, tenantID, code string) (*TaxForm, error)
	Update(ctx context.Context, form *TaxForm) error

	// ListByIDs returns the forms found among ids, missing ids are skipped
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*TaxForm, error)
	// ListUpdatedSince returns forms among ids with updated_at >= since
	ListUpdatedSince(ctx context.Context, tenantID string, ids []string, since time.Time) ([]*TaxForm, error)
}
