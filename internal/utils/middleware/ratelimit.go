package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/sflix/server/internal/utils/errors"
)

const (
	RateLimitRemaining = "X-RateLimit-Remaining"
	RateLimitLimit     = "X-RateLimit-Limit"
	RetryAfter         = "Retry-After"
)

// RateLimiter admits or rejects one request for key within a window and
// reports how many requests the window still allows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

// RateLimitByIP limits each client address to limit requests per window on
// the routes it guards. A nil limiter, or one that errors, lets requests through.
func RateLimitByIP(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := c.FullPath() + ":" + c.ClientIP()
		allowed, remaining, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		c.Header(RateLimitLimit, strconv.Itoa(limit))
		c.Header(RateLimitRemaining, strconv.Itoa(remaining))
		if !allowed {
			c.Header(RetryAfter, strconv.Itoa(int(window.Seconds())))
			abortWithAppError(c, apperrors.RateLimited(""))
			return
		}

		c.Next()
	}
}
