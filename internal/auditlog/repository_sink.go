package auditlog

import (
	"context"

	"github.com/flexprice/taxsync/internal/domain/audit"
	ierr "github.com/flexprice/taxsync/internal/errors"
)

// RepositorySink appends audit events to the relational audit log
type RepositorySink struct {
	repo audit.Repository
}

func NewRepositorySink(repo audit.Repository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Emit(ctx context.Context, event *audit.Event) error {
	err := s.repo.Create(ctx, event)
	if ierr.IsAlreadyExists(err) {
		// a retried write that already landed
		return nil
	}
	return err
}
