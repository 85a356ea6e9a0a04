package auditlog_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/flexprice/taxsync/internal/auditlog"
	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/domain/audit"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/pubsub/memory"
	"github.com/flexprice/taxsync/internal/testutil"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Configuration {
	cfg := config.GetDefaultConfig()
	cfg.Audit.Timeout = 200 * time.Millisecond
	cfg.Audit.MaxRetries = 3
	cfg.Audit.InitialBackoff = time.Millisecond
	return cfg
}

func newEvent() *audit.Event {
	return &audit.Event{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		TenantID:   types.DefaultTenantID,
		EventType:  types.AuditEventSyncCompleted,
		Outcome:    types.AuditOutcomeSuccess,
		DeviceID:   "device-1",
		OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEmitter_RetriesTransientFailures(t *testing.T) {
	sink := testutil.NewInMemoryAuditSink()
	sink.FailTimes = 2
	sink.Err = ierr.NewError("broker unavailable").Mark(ierr.ErrSystem)

	emitter := auditlog.NewEmitter(sink, testConfig(), logger.NewNop())
	emitter.Emit(context.Background(), newEvent())

	assert.Equal(t, 3, sink.Calls())
	assert.Len(t, sink.Events(), 1)
}

func TestEmitter_GivesUpAfterMaxRetries(t *testing.T) {
	sink := testutil.NewInMemoryAuditSink()
	sink.FailTimes = 100
	sink.Err = ierr.NewError("broker unavailable").Mark(ierr.ErrSystem)

	emitter := auditlog.NewEmitter(sink, testConfig(), logger.NewNop())
	emitter.Emit(context.Background(), newEvent())

	assert.Equal(t, 4, sink.Calls())
	assert.Empty(t, sink.Events())
}

func TestEmitter_BoundedByTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Timeout = 50 * time.Millisecond
	emitter := auditlog.NewEmitter(testutil.BlockingAuditSink{}, cfg, logger.NewNop())

	start := time.Now()
	emitter.Emit(context.Background(), newEvent())
	assert.Less(t, time.Since(start), time.Second)
}

func TestEmitter_SurvivesCallerCancellation(t *testing.T) {
	sink := testutil.NewInMemoryAuditSink()
	emitter := auditlog.NewEmitter(sink, testConfig(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emitter.Emit(ctx, newEvent())

	assert.Len(t, sink.Events(), 1)
}

func TestPubSubSink_PublishesJSON(t *testing.T) {
	ps := memory.NewPubSub(logger.NewNop())
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	messages, err := ps.Subscribe(ctx, "audit")
	require.NoError(t, err)

	event := newEvent()
	require.NoError(t, auditlog.NewPubSubSink(ps, "audit").Emit(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(types.AuditEventSyncCompleted), msg.Metadata.Get("event_type"))

		var got audit.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, event.DeviceID, got.DeviceID)
		assert.Equal(t, event.Outcome, got.Outcome)
	case <-ctx.Done():
		t.Fatal("audit message not received")
	}
}

func TestNewSink(t *testing.T) {
	ps := memory.NewPubSub(logger.NewNop())
	defer ps.Close()
	repo := testutil.NewInMemoryAuditSink()

	tests := []struct {
		name        string
		destination types.AuditDestination
		wantErr     bool
	}{
		{name: "pubsub", destination: types.AuditDestinationPubSub},
		{name: "postgres", destination: types.AuditDestinationPostgres},
		{name: "all", destination: types.AuditDestinationAll},
		{name: "unknown", destination: "file", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Audit.Destination = tt.destination

			sink, err := auditlog.NewSink(cfg, ps, repo)
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			require.NoError(t, sink.Emit(context.Background(), newEvent()))
		})
	}
	// postgres and all both reached the repository
	assert.Len(t, repo.Events(), 2)
}
