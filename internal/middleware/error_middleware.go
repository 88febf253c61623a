package middleware

import (
	"net/http"

	"founders-chat/internal/transport/httpdto"
	"founders-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler logs errors recorded by handlers, at error level for 5xx.
// If a handler recorded an error without responding, a 500 envelope is
// written.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := c.Writer.Status()
		if l != nil {
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			}
			if status >= http.StatusInternalServerError {
				l.ErrorCtx(c.Request.Context(), "request failed", fields...)
			} else {
				l.InfoCtx(c.Request.Context(), "request rejected", fields...)
			}
		}

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
		}
	}
}
