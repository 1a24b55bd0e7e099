package middleware

import (
	"net/http"

	"sms-campaign/internal/services"
	"sms-campaign/internal/transport/httpdto"
	"sms-campaign/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler logs the last error a handler attached with c.Error and
// renders it when the handler wrote nothing.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if l != nil && status >= http.StatusInternalServerError {
			l.ErrorCtx(c.Request.Context(), "request error", zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}

		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
		c.JSON(status, httpdto.NewErrorResponse(msg, services.ErrorCode(err)))
	}
}
