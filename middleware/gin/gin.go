// Package gin adapts a ratelimiter.Limiter to the Gin web framework.
package gin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sajidfayaz/redis-ratelimiter/middleware"
	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

// RateLimiter creates a new Gin middleware handler.
//
// It uses the provided Limiter instance (the core rate-limiting logic) to check
// if a request should be allowed or denied. The behavior of the middleware can be
// customized by passing functional options, such as changing how a client is
// identified (WithKeyFunc) or how rate limit errors are handled (WithErrorHandler).
//
// Example:
//
//	limiter, err := ratelimiter.NewSlidingWindow(store, ratelimiter.WithLimit(100))
//	router := gin.Default()
//	// Apply middleware globally
//	router.Use(ginmw.RateLimiter(limiter))
func RateLimiter(limiter ratelimiter.Limiter, options ...middleware.Option) gin.HandlerFunc {
	cfg := middleware.NewConfig(options...)

	return func(c *gin.Context) {
		key, err := cfg.KeyFunc(c.Request)
		if err != nil {
			cfg.Logger.Errorf("Failed to extract key: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		result, err := limiter.Consume(c.Request.Context(), key)
		if err != nil {
			cfg.Logger.Errorf("Limiter failed for key '%s': %v", key, err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		if !result.ResetAt.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		}

		if result.Degraded {
			cfg.Logger.Errorf("Limiter degraded for key '%s', letting request through", key)
		}

		if !result.Allowed {
			cfg.Logger.Debugf(
				"Request denied for key '%s'. Remaining: %d, Limit: %d",
				key, result.Remaining, result.Limit,
			)
			cause := middleware.ErrLimitExceeded
			if result.Err != "" {
				cause = middleware.ErrStoreUnavailable
			}
			cfg.ErrorHandler(c.Writer, c.Request, cause, result)
			c.Abort()
			return
		}

		cfg.Logger.Debugf(
			"Request allowed for key '%s'. Remaining: %d, Limit: %d",
			key, result.Remaining, result.Limit,
		)

		c.Next()
	}
}
