package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/process-engine/internal/platform/logging"
)

// Diagnostics returns middleware that gives every request its own diagnostic
// context and stores logger as the request's context logger. Engine commands
// run by the request publish their correlation values into that diagnostic
// context, so concurrent requests never see each other's values.
//
// It must run before any middleware that enriches the context logger.
func Diagnostics(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.WithContext(c.Request.Context(), logger)
		ctx = logging.WithMDC(ctx, logging.NewMDC())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
