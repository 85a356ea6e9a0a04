package auditlog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/domain/audit"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/pubsub"
	"github.com/flexprice/taxsync/internal/types"
)

// MultiSink writes every event to all sinks and joins their errors
type MultiSink []audit.Sink

func (m MultiSink) Emit(ctx context.Context, event *audit.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSink builds the sink for the configured audit destination
func NewSink(cfg *config.Configuration, publisher pubsub.Publisher, repo audit.Repository) (audit.Sink, error) {
	switch cfg.Audit.Destination {
	case types.AuditDestinationPubSub:
		return NewPubSubSink(publisher, cfg.Audit.Topic), nil
	case types.AuditDestinationPostgres:
		return NewRepositorySink(repo), nil
	case types.AuditDestinationAll:
		return MultiSink{
			NewPubSubSink(publisher, cfg.Audit.Topic),
			NewRepositorySink(repo),
		}, nil
	default:
		return nil, ierr.NewErrorf("unknown audit destination %q", cfg.Audit.Destination).
			WithHint("Audit destination must be one of pubsub, postgres or all").
			Mark(ierr.ErrValidation)
	}
}
