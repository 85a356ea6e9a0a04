package audit

import "context"

// Sink is a durable append-only destination for audit events
type Sink interface {
	Emit(ctx context.Context, event *Event) error
}

// Repository stores audit events in the relational store
type Repository interface {
	Create(ctx context.Context, event *Event) error
}
