package v1

import (
	"net/http"

	"github.com/flexprice/taxsync/internal/api/dto"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/service"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/gin-gonic/gin"
)

type CalculationHandler struct {
	service service.CalculationService
	logger  *logger.Logger
}

func NewCalculationHandler(service service.CalculationService, logger *logger.Logger) *CalculationHandler {
	return &CalculationHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary Calculate taxes
// @Description Prices line items for a company with its selected tax rules
// @Tags Calculations
// @Accept json
// @Produce json
// @Param request body dto.CalculationRequest true "Line items to price"
// @Success 200 {object} dto.CalculationResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /calculations [post]
func (h *CalculationHandler) Calculate(c *gin.Context) {
	var req dto.CalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.Calculate(ctx, types.GetTenantID(ctx), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Validate a calculation request
// @Description Reports every violation of the request without calculating
// @Tags Calculations
// @Accept json
// @Produce json
// @Param request body dto.ValidateCalculationRequest true "Calculation request to check"
// @Success 200 {object} dto.ValidationResult
// @Failure 400 {object} ierr.ErrorResponse
// @Router /calculations/validate [post]
func (h *CalculationHandler) Validate(c *gin.Context) {
	var req dto.ValidateCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	result, err := h.service.Validate(ctx, types.GetTenantID(ctx), req.ToCalculationRequest())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
