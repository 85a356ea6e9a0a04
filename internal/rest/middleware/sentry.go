package middleware

import (
	"time"

	"github.com/flexprice/taxsync/internal/config"
	"github.com/flexprice/taxsync/internal/types"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware captures panics and tags the request hub with the tenant and request id.
// It must run after RequestIDMiddleware and TenantMiddleware to see both.
func SentryMiddleware(cfg *config.Configuration) []gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return nil
	}

	return []gin.HandlerFunc{
		sentrygin.New(sentrygin.Options{
			Repanic:         true,
			WaitForDelivery: false,
			Timeout:         2 * time.Second,
		}),
		func(c *gin.Context) {
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				ctx := c.Request.Context()
				hub.Scope().SetTag("tenant_id", types.GetTenantID(ctx))
				hub.Scope().SetTag("request_id", types.GetRequestID(ctx))
				if deviceID := c.GetHeader(types.HeaderDeviceID); deviceID != "" {
					hub.Scope().SetTag("device_id", deviceID)
				}
			}
			c.Next()
		},
	}
}
