package errors

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder provides a fluent interface for building errors
// but does not implement the error interface. This is intentional.
// Mark must be the last call in the chain when using the builder.
type ErrorBuilder struct {
	err error
}

// NewError starts a new error builder chain
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a new error builder chain with a formatted message
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts a builder chain with an existing error
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage adds context to the error
// this is for the internal error messages
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint adds context to the error
// this is for the client facing error messages
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is a helper for WithHint that allows for formatting
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails adds structured details
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, "__json__:%s", errors.Safe(string(marshaled)))
	return b
}

// WithFieldErrors attaches the full list of field violations
func (b *ErrorBuilder) WithFieldErrors(fields []FieldError) *ErrorBuilder {
	b.err = &fieldErrors{cause: b.err, fields: fields}
	return b.WithReportableDetails(map[string]any{"errors": fields})
}

// WithCalculationStep tags the error with the calculation step that failed
func (b *ErrorBuilder) WithCalculationStep(step string) *ErrorBuilder {
	b.err = &calculationStepError{cause: b.err, step: step}
	return b.WithReportableDetails(map[string]any{"calculation_step": step})
}

// WithRetryAfter tells the caller how long to back off
func (b *ErrorBuilder) WithRetryAfter(d time.Duration) *ErrorBuilder {
	b.err = &retryAfterError{cause: b.err, after: d}
	return b.WithReportableDetails(map[string]any{"retry_after": retryAfterSeconds(d)})
}

// WithConflictResolution records the conflict strategy involved in a sync failure
func (b *ErrorBuilder) WithConflictResolution(resolution string) *ErrorBuilder {
	b.err = &conflictResolutionError{cause: b.err, resolution: resolution}
	return b.WithReportableDetails(map[string]any{"conflict_resolution": resolution})
}

// Retryable marks the error safe to retry unchanged
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	b.err = &retryableError{cause: b.err}
	return b.WithReportableDetails(map[string]any{"retryable": true})
}

// Mark marks the error with a sentinel error
// should be the last call in the chain
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}

// Error returns the built error without marking it
func (b *ErrorBuilder) Error() error {
	return b.err
}
