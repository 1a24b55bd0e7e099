package middleware

import (
	"context"
	"net/http"
	"strings"

	"sms-campaign/internal/services"
	"sms-campaign/internal/transport/httpdto"
	"sms-campaign/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware resolves the bearer token into a principal and session id.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		principal, sessionID, err := service.Authenticate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithPrincipalContext(c.Request.Context(), principal, sessionID)
		ctx = context.WithValue(ctx, logger.UserIdKey, principal.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
