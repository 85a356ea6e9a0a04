package types

// AuditEventType names the audit events emitted by sync operations
type AuditEventType string

const (
	AuditEventSyncCompleted         AuditEventType = "sync.completed"
	AuditEventSyncFailed            AuditEventType = "sync.failed"
	AuditEventConflictResolved      AuditEventType = "sync.conflict_resolved"
	AuditEventConflictResolveFailed AuditEventType = "sync.conflict_resolve_failed"
)

// AuditOutcome summarises how the audited operation ended
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomePartial AuditOutcome = "partial"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditDestination selects where audit events are written
type AuditDestination string

const (
	AuditDestinationPubSub   AuditDestination = "pubsub"
	AuditDestinationPostgres AuditDestination = "postgres"
	AuditDestinationAll      AuditDestination = "all"
)
