package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flexprice/taxsync/internal/api/dto"
	v1 "github.com/flexprice/taxsync/internal/api/v1"
	"github.com/flexprice/taxsync/internal/config"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCalculations struct {
	tenantID string
}

func (s *stubCalculations) Calculate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.CalculationResponse, error) {
	s.tenantID = tenantID
	return nil, ierr.NewCalculationError(ierr.StepRuleSelection, nil)
}

func (s *stubCalculations) Validate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.ValidationResult, error) {
	s.tenantID = tenantID
	return &dto.ValidationResult{
		Valid:  false,
		Errors: []ierr.FieldError{{Field: "items", Message: "must contain at least one item"}},
	}, nil
}

func newTestRouter(calc *stubCalculations) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	return NewRouter(Handlers{
		Health:      v1.NewHealthHandler(nil, log),
		Calculation: v1.NewCalculationHandler(calc, log),
		Sync:        v1.NewSyncHandler(nil, log),
		Admin:       v1.NewTaxAdminHandler(nil, log),
	}, &config.Configuration{}, log, nil)
}

func TestRouter(t *testing.T) {
	calc := &stubCalculations{}
	r := newTestRouter(calc)

	t.Run("health needs no tenant", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("v1 requires a tenant", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations/validate", strings.NewReader(`{"items":[]}`))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ierr.ErrCodeValidation)
	})

	t.Run("validate reports violations with 200", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations/validate", strings.NewReader(`{"items":[]}`))
		req.Header.Set(types.HeaderTenantID, "tenant_1")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"valid":false`)
		assert.Equal(t, "tenant_1", calc.tenantID)
	})

	t.Run("calculation errors carry the step", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations", strings.NewReader(`{"company_id":"comp_1","items":[]}`))
		req.Header.Set(types.HeaderTenantID, "tenant_1")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), ierr.ErrCodeCalculation)
		assert.Contains(t, w.Body.String(), `"calculation_step":"rule_selection"`)
	})

	t.Run("malformed body is a validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations", strings.NewReader(`{`))
		req.Header.Set(types.HeaderTenantID, "tenant_1")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
