package middleware

import (
	"strconv"

	"github.com/flexprice/taxsync/internal/config"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/ratelimit"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles requests per tenant. It must run after TenantMiddleware.
// A limiter backend failure lets the request through.
func RateLimitMiddleware(cfg *config.Configuration, limiter ratelimit.Limiter, log *logger.Logger) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantID := types.GetTenantID(ctx)

		decision, err := limiter.Allow(ctx, tenantID)
		if err != nil {
			log.WithContext(ctx).Warnw("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			c.Error(ierr.NewRateLimitError(decision.RetryAfter))
			c.Abort()
			return
		}
		c.Next()
	}
}
