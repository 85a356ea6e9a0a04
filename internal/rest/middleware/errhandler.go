package middleware

import (
	"strconv"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached to the context as an
// ierr.ErrorResponse with the status derived from its kind
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.WithContext(c.Request.Context()).Errorw("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", status,
				"error", err,
			)
		}

		if seconds := ierr.RetryAfterSeconds(err); seconds > 0 {
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		}

		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
