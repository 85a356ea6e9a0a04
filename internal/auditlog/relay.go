package auditlog

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/taxsync/internal/domain/audit"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/pubsub"
)

// Relay consumes published audit events and writes them to the repository.
// Event ids make replays harmless, so a failed write is nacked for redelivery.
type Relay struct {
	subscriber pubsub.Subscriber
	repo       audit.Repository
	topic      string
	logger     *logger.Logger
}

func NewRelay(subscriber pubsub.Subscriber, repo audit.Repository, topic string, logger *logger.Logger) *Relay {
	return &Relay{
		subscriber: subscriber,
		repo:       repo,
		topic:      topic,
		logger:     logger.Named("audit_relay"),
	}
}

// Run blocks until ctx is done or the subscription closes
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return err
	}

	r.logger.Infow("relaying audit events", "topic", r.topic)
	for msg := range messages {
		r.handle(ctx, msg)
	}
	return nil
}

func (r *Relay) handle(ctx context.Context, msg *message.Message) {
	var event audit.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// malformed payloads never succeed, drop them
		r.logger.Errorw("dropping malformed audit message", "message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	if err := r.repo.Create(ctx, &event); err != nil {
		r.logger.Warnw("failed to store audit event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"error", err,
		)
		msg.Nack()
		return
	}

	r.logger.Debugw("stored audit event", "event_id", event.ID, "event_type", event.EventType)
	msg.Ack()
}
