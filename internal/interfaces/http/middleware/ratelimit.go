package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/infrastructure/ratelimit"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

// RateLimiter caps requests per client IP on the unauthenticated endpoints.
// A nil limiter (Redis disabled) lets everything through.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	window  ratelimit.Window
	logger  logger.Interface
}

func NewRateLimiter(limiter ratelimit.RateLimiter, perMinute int, logger logger.Interface) *RateLimiter {
	return &RateLimiter{limiter: limiter, window: ratelimit.PerMinute(perMinute), logger: logger}
}

// Limit keys the counter by scope so /auth and /webhook do not share a budget.
func (rl *RateLimiter) Limit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.limiter == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", scope, c.ClientIP())
		allowed, err := rl.limiter.Allow(c.Request.Context(), key, rl.window)
		if err != nil {
			// Fail open; the limiter only protects against abuse.
			rl.logger.Warnw("rate limiter unavailable", "error", err, "scope", scope)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", "60")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
