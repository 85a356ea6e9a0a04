package errors

import (
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", NewValidationError([]FieldError{{Field: "items", Message: "is required"}}), ErrCodeValidation, http.StatusBadRequest},
		{"not found", NewError("company missing").Mark(ErrNotFound), ErrCodeNotFound, http.StatusNotFound},
		{"already exists", NewError("dup").Mark(ErrAlreadyExists), ErrCodeAlreadyExists, http.StatusConflict},
		{"calculation", NewCalculationError(StepVatBreakdown, nil), ErrCodeCalculation, http.StatusUnprocessableEntity},
		{"sync", NewSyncError(SyncReasonLeaseUnavailable, true, ""), ErrCodeSync, http.StatusConflict},
		{"rate limit", NewRateLimitError(time.Second), ErrCodeRateLimit, http.StatusTooManyRequests},
		{"database", NewError("conn reset").Mark(ErrDatabase), ErrCodeDatabase, http.StatusInternalServerError},
		{"plain", errors.New("boom"), ErrCodeSystemError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
			assert.Equal(t, tt.status, HTTPStatusFromErr(tt.err))
		})
	}
	assert.Empty(t, Code(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRateLimitError(time.Second)))
	assert.True(t, IsRetryable(NewSyncError(SyncReasonCommitFailed, true, "")))
	assert.False(t, IsRetryable(NewSyncError(SyncReasonConflictDetected, false, "server_wins")))
	assert.False(t, IsRetryable(NewValidationError(nil)))
	assert.False(t, IsRetryable(NewCalculationError(StepRuleSelection, nil)))
	assert.False(t, IsRetryable(nil))

	// retryable only counts on sync errors
	notSync := NewError("lookup failed").Retryable().Mark(ErrNotFound)
	assert.False(t, IsRetryable(notSync))
}

func TestTypedAttributesSurviveWrapping(t *testing.T) {
	base := NewValidationError([]FieldError{
		{Field: "items[0].quantity", Message: "must be greater than 0"},
		{Field: "items[1].vat_rate", Message: "must be between 0 and 100"},
	})
	wrapped := WithError(base).WithHint("Invalid batch item").Mark(ErrValidation)

	require.Len(t, FieldErrors(wrapped), 2)
	assert.Equal(t, "items[1].vat_rate", FieldErrors(wrapped)[1].Field)

	calc := NewCalculationError(StepCompanyLookup, errors.New("store timeout"))
	assert.Equal(t, StepCompanyLookup, CalculationStep(WithError(calc).Mark(ErrCalculation)))
	assert.True(t, IsCalculation(calc))

	rl := NewRateLimitError(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, RetryAfter(rl))
	assert.Equal(t, int64(2), RetryAfterSeconds(rl))
	assert.Zero(t, RetryAfterSeconds(NewRateLimitError(0)))

	sync := NewSyncError(SyncReasonConflictDetected, false, "manual_merge")
	assert.Equal(t, "manual_merge", ConflictResolution(sync))
	assert.Empty(t, ConflictResolution(NewSyncError(SyncReasonCancelled, true, "")))
}

func TestDetails(t *testing.T) {
	err := WithError(NewSyncError(SyncReasonCommitFailed, true, "client_wins")).
		WithReportableDetails(map[string]any{"cause": ErrCodeDatabase}).
		Mark(ErrSync)

	details := Details(err)
	assert.Equal(t, SyncReasonCommitFailed, details["reason"])
	assert.Equal(t, ErrCodeDatabase, details["cause"])
	assert.Equal(t, "client_wins", details["conflict_resolution"])
	assert.Equal(t, true, details["retryable"])

	rl := Details(NewRateLimitError(3 * time.Second))
	assert.Equal(t, int64(3), rl["retry_after"])

	assert.Nil(t, Details(errors.New("plain")))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewCalculationError(StepRuleSelection, errors.New("unsupported method")))

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeCalculation, resp.Error.Code)
	assert.Equal(t, "Calculation failed at step rule_selection", resp.Error.Display)
	assert.Equal(t, StepRuleSelection, resp.Error.Details["calculation_step"])

	plain := NewErrorResponse(errors.New("boom"))
	assert.Equal(t, ErrCodeSystemError, plain.Error.Code)
	assert.Equal(t, "An unexpected error occurred", plain.Error.Display)
}

func TestDisplayMessageUsesInnermostHint(t *testing.T) {
	err := WithError(NewError("row missing").WithHint("Company not found").Mark(ErrNotFound)).
		WithHint("Lookup failed").
		Mark(ErrNotFound)
	assert.Equal(t, "Company not found", DisplayMessage(err))
}
