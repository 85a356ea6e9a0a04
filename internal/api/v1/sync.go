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

type SyncHandler struct {
	service service.SyncService
	logger  *logger.Logger
}

func NewSyncHandler(service service.SyncService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary Synchronize a device
// @Description Returns the tax state changed since the device cursor and runs its pending calculations
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body dto.SyncRequest true "Sync request"
// @Success 200 {object} dto.SyncResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /sync [post]
func (h *SyncHandler) RequestSync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.RequestSync(ctx, types.GetTenantID(ctx), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get device sync status
// @Tags Sync
// @Produce json
// @Param device_id path string true "Device ID"
// @Param company_id query string false "Company ID, defaults to the most recently synced company"
// @Success 200 {object} dto.SyncStatusResponse
// @Router /sync/status/{device_id} [get]
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.GetSyncStatus(ctx, types.GetTenantID(ctx), c.Param("device_id"), c.Query("company_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Resolve a sync conflict
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body dto.ResolveConflictRequest true "Conflict and strategy"
// @Success 200 {object} dto.ResolveConflictResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /sync/conflicts/resolve [post]
func (h *SyncHandler) ResolveConflict(c *gin.Context) {
	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.ResolveConflict(ctx, types.GetTenantID(ctx), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
