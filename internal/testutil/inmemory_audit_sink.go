package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/taxsync/internal/domain/audit"
)

// InMemoryAuditSink records every emitted event, it implements audit.Sink and audit.Repository
type InMemoryAuditSink struct {
	mu     sync.Mutex
	events []*audit.Event
	// FailTimes makes the next n Emit calls fail with Err
	FailTimes int
	Err       error
	calls     int
}

func NewInMemoryAuditSink() *InMemoryAuditSink {
	return &InMemoryAuditSink{}
}

func (s *InMemoryAuditSink) Emit(ctx context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.FailTimes > 0 {
		s.FailTimes--
		return s.Err
	}
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *InMemoryAuditSink) Create(ctx context.Context, event *audit.Event) error {
	return s.Emit(ctx, event)
}

// Events returns the recorded events in emission order
func (s *InMemoryAuditSink) Events() []*audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*audit.Event(nil), s.events...)
}

// Calls returns the number of Emit attempts
func (s *InMemoryAuditSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *InMemoryAuditSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.calls = 0
	s.FailTimes = 0
}

// BlockingAuditSink never returns until its context is done
type BlockingAuditSink struct{}

func (BlockingAuditSink) Emit(ctx context.Context, _ *audit.Event) error {
	<-ctx.Done()
	return ctx.Err()
}
