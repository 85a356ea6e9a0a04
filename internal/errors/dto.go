package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code          string         `json:"code"`
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse renders err for clients, typed details included
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    Code(err),
			Display: DisplayMessage(err),
			Details: Details(err),
		},
	}
}

// DisplayMessage returns the first non-empty hint of err
func DisplayMessage(err error) string {
	// GetAllHints is post-order, the first hint is the innermost one
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

// Details merges the reportable details of err with its typed attributes
func Details(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			jsonStr, ok := strings.CutPrefix(payload, "__json__:")
			if !ok {
				continue
			}
			var jsonDetails map[string]any
			if err := json.Unmarshal([]byte(jsonStr), &jsonDetails); err == nil {
				for k, v := range jsonDetails {
					details[k] = v
				}
			}
		}
	}

	if fields := FieldErrors(err); len(fields) > 0 {
		details["fields"] = fields
	}
	if step := CalculationStep(err); step != "" {
		details["calculation_step"] = step
	}
	if seconds := RetryAfterSeconds(err); seconds > 0 {
		details["retry_after"] = seconds
	}
	if resolution := ConflictResolution(err); resolution != "" {
		details["conflict_resolution"] = resolution
	}
	if IsRetryable(err) {
		details["retryable"] = true
	}

	if len(details) == 0 {
		return nil
	}
	return details
}
