package auditlog

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/taxsync/internal/domain/audit"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/pubsub"
)

// PubSubSink publishes audit events as JSON messages keyed by the event id
type PubSubSink struct {
	publisher pubsub.Publisher
	topic     string
}

func NewPubSubSink(publisher pubsub.Publisher, topic string) *PubSubSink {
	return &PubSubSink{publisher: publisher, topic: topic}
}

func (s *PubSubSink) Emit(ctx context.Context, event *audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return backoff.Permanent(ierr.WithError(err).
			WithHint("Failed to marshal audit event").
			Mark(ierr.ErrSystem))
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_type", string(event.EventType))
	msg.Metadata.Set("device_id", event.DeviceID)

	if err := s.publisher.Publish(ctx, s.topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish audit event").
			Mark(ierr.ErrSystem)
	}
	return nil
}
