package middleware

import (
	"strings"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware scopes the request to the tenant named by the X-Tenant-ID header.
// Requests without a tenant are rejected before reaching a handler.
func TenantMiddleware(c *gin.Context) {
	tenantID := strings.TrimSpace(c.GetHeader(types.HeaderTenantID))
	if tenantID == "" {
		c.Error(ierr.NewValidationError([]ierr.FieldError{{
			Field:   types.HeaderTenantID,
			Message: "header is required",
		}}))
		c.Abort()
		return
	}

	c.Request = c.Request.WithContext(types.SetTenantID(c.Request.Context(), tenantID))
	c.Next()
}
