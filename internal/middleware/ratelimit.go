package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cashcraft/api/internal/cache"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (cache.RateDecision, error)
}

// RateLimit throttles callers by client IP and advertises the budget in the
// RateLimit-* headers. When the limiter backend fails the request is let
// through.
func RateLimit(limiter Limiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		resetIn := int(math.Ceil(time.Until(decision.ResetAt).Seconds()))
		if resetIn < 0 {
			resetIn = 0
		}
		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(resetIn))

		if !decision.Allowed {
			h.Set("Retry-After", strconv.Itoa(resetIn))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later.",
			})
			return
		}

		c.Next()
	}
}
