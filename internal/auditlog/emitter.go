package auditlog

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/logger"
)

// Emitter delivers audit events to a sink with bounded retries.
// Emit returns once the event is written or the audit timeout elapsed,
// failures are logged and never surface to the caller.
type Emitter struct {
	sink           audit.Sink
	timeout        time.Duration
	maxRetries     uint64
	initialBackoff time.Duration
	logger         *logger.Logger
}

func NewEmitter(sink audit.Sink, cfg *config.Configuration, logger *logger.Logger) *Emitter {
	return &Emitter{
		sink:           sink,
		timeout:        cfg.Audit.Timeout,
		maxRetries:     cfg.Audit.MaxRetries,
		initialBackoff: cfg.Audit.InitialBackoff,
		logger:         logger.Named("audit"),
	}
}

// Emit writes event, it outlives the cancellation of ctx but not the audit timeout
func (e *Emitter) Emit(ctx context.Context, event *audit.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- backoff.Retry(func() error {
			return e.sink.Emit(ctx, event)
		}, e.policy(ctx))
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		e.logger.Errorw("failed to write audit event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"device_id", event.DeviceID,
			"error", err,
		)
		return
	}

	e.logger.Debugw("audit event written",
		"event_id", event.ID,
		"event_type", event.EventType,
		"outcome", event.Outcome,
	)
}

func (e *Emitter) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if e.initialBackoff > 0 {
		b.InitialInterval = e.initialBackoff
	}
	b.MaxElapsedTime = e.timeout
	return backoff.WithContext(backoff.WithMaxRetries(b, e.maxRetries), ctx)
}
