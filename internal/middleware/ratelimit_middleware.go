package middleware

import (
	"context"
	"net/http"
	"strconv"

	"sms-campaign/internal/redis"
	"sms-campaign/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// RequestLimiter is the per-client API budget check.
type RequestLimiter interface {
	AllowRequest(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// RateLimitMiddleware applies the per-ip request budget.
func RateLimitMiddleware(limiter RequestLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowRequest(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
