package errors

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// Calculation steps used to tag CALCULATION_ERROR
const (
	StepCompanyLookup = "company_lookup"
	StepVatBreakdown  = "vat_breakdown"
	StepRuleSelection = "rule_selection"
)

// FieldError is a single field level violation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type fieldErrors struct {
	cause  error
	fields []FieldError
}

func (e *fieldErrors) Error() string { return e.cause.Error() }
func (e *fieldErrors) Unwrap() error { return e.cause }

type calculationStepError struct {
	cause error
	step  string
}

func (e *calculationStepError) Error() string { return e.cause.Error() }
func (e *calculationStepError) Unwrap() error { return e.cause }

type retryAfterError struct {
	cause error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.cause.Error() }
func (e *retryAfterError) Unwrap() error { return e.cause }

type conflictResolutionError struct {
	cause      error
	resolution string
}

func (e *conflictResolutionError) Error() string { return e.cause.Error() }
func (e *conflictResolutionError) Unwrap() error { return e.cause }

type retryableError struct {
	cause error
}

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

// FieldErrors returns the field violations carried by err, if any
func FieldErrors(err error) []FieldError {
	var fe *fieldErrors
	if errors.As(err, &fe) {
		return fe.fields
	}
	return nil
}

// CalculationStep returns the failed calculation step carried by err
func CalculationStep(err error) string {
	var se *calculationStepError
	if errors.As(err, &se) {
		return se.step
	}
	return ""
}

// RetryAfter returns the back off carried by err
func RetryAfter(err error) time.Duration {
	var re *retryAfterError
	if errors.As(err, &re) {
		return re.after
	}
	return 0
}

// ConflictResolution returns the conflict strategy carried by err
func ConflictResolution(err error) string {
	var ce *conflictResolutionError
	if errors.As(err, &ce) {
		return ce.resolution
	}
	return ""
}

// NewValidationError builds a VALIDATION_ERROR carrying every field violation
func NewValidationError(fields []FieldError) error {
	return NewError("request validation failed").
		WithHint("Request validation failed").
		WithFieldErrors(fields).
		Mark(ErrValidation)
}

// NewCalculationError builds a CALCULATION_ERROR tagged with the failing step
func NewCalculationError(step string, cause error) error {
	if cause == nil {
		cause = errors.New("calculation failed")
	}
	return WithError(cause).
		WithHintf("Calculation failed at step %s", step).
		WithCalculationStep(step).
		Mark(ErrCalculation)
}

// NewRateLimitError builds a RATE_LIMIT_EXCEEDED error
func NewRateLimitError(retryAfter time.Duration) error {
	return NewError("rate limit exceeded").
		WithHint("Too many requests, retry later").
		WithRetryAfter(retryAfter).
		Mark(ErrRateLimit)
}

func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

// RetryAfterSeconds rounds the back off of err up to whole seconds
func RetryAfterSeconds(err error) int64 {
	return retryAfterSeconds(RetryAfter(err))
}

// Sync failure reasons
const (
	SyncReasonLeaseUnavailable = "lease_unavailable"
	SyncReasonCommitFailed     = "commit_failed"
	SyncReasonConflictDetected = "conflict_detected"
	SyncReasonCancelled        = "cancelled"
)

// NewSyncError builds a SYNC_ERROR. resolution may be empty.
func NewSyncError(reason string, retryable bool, resolution string) error {
	b := NewErrorf("sync failed: %s", reason).
		WithHintf("Synchronization failed: %s", reason).
		WithReportableDetails(map[string]any{"reason": reason})
	if resolution != "" {
		b = b.WithConflictResolution(resolution)
	}
	if retryable {
		b = b.Retryable()
	}
	return b.Mark(ErrSync)
}
