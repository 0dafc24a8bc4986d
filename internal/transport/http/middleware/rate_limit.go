package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/floodline/portal-api/internal/core/port"
	appLogger "github.com/floodline/portal-api/internal/infra/logger"
)

// RateLimitRule configures a fixed-window limit for a route. The backing
// store owns the actual window length; Window here drives the Retry-After
// hint and should match the store's configuration.
type RateLimitRule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimiter throttles requests per client IP inside fixed windows backed by
// an attempt store. Store failures fail open: a broken throttle backend must
// not take logins down with it.
type RateLimiter struct {
	store port.AttemptStore
	log   *zap.Logger
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.AttemptStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{store: store, log: log}
}

// RateLimit returns a Gin middleware enforcing the given rule.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl == nil || rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", rule.Name, ip)

		attempts, err := rl.store.IncrementAttempts(c.Request.Context(), key)
		if err != nil {
			rl.log.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("client_ip", appLogger.MaskIP(ip)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if attempts > int64(rule.Limit) {
			retryAfter := int(math.Ceil(rule.Window.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				newErrorResponse(c, "too many requests"))
			return
		}

		c.Next()
	}
}
