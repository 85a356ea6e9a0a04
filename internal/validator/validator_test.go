package validator

import (
	"testing"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name string `json:"name" validate:"required"`
}

type testRequest struct {
	CompanyID string     `json:"company_id" validate:"required"`
	Mode      string     `json:"mode" validate:"omitempty,oneof=full incremental"`
	Items     []testItem `json:"items" validate:"required,min=1,dive"`
}

func TestValidateRequestReportsJSONPaths(t *testing.T) {
	NewValidator()

	err := ValidateRequest(testRequest{
		Mode:  "partial",
		Items: []testItem{{Name: "a"}, {}},
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	fields := ierr.FieldErrors(err)
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		paths = append(paths, f.Field)
	}
	assert.ElementsMatch(t, []string{"company_id", "mode", "items[1].name"}, paths)
}

func TestValidateRequestPasses(t *testing.T) {
	NewValidator()
	assert.NoError(t, ValidateRequest(testRequest{CompanyID: "c", Items: []testItem{{Name: "a"}}}))
}
