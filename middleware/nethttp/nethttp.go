// Package nethttp adapts a ratelimiter.Limiter to standard net/http handlers.
package nethttp

import (
	"net/http"
	"strconv"

	"github.com/sajidfayaz/redis-ratelimiter/middleware"
	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

// Middleware creates a new middleware handler for the standard `net/http` library.
//
// It wraps an existing `http.Handler` and checks incoming requests against the
// provided Limiter instance. On every request, it adds the standard
// `X-RateLimit-*` headers to the response. The behavior can be customized
// using functional options from the parent middleware package.
//
// Example:
//
//	limiter, err := ratelimiter.NewSlidingWindow(store,
//		ratelimiter.WithLimit(100),
//		ratelimiter.WithWindow(time.Minute),
//	)
//	mux := http.NewServeMux()
//	mux.HandleFunc("/", myHandler)
//
//	rateLimitMiddleware := nethttp.Middleware(limiter)
//	http.ListenAndServe(":8080", rateLimitMiddleware(mux))
func Middleware(limiter ratelimiter.Limiter, options ...middleware.Option) func(http.Handler) http.Handler {
	cfg := middleware.NewConfig(options...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := cfg.KeyFunc(r)
			if err != nil {
				cfg.Logger.Errorf("Failed to extract key: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			result, err := limiter.Consume(r.Context(), key)
			if err != nil {
				cfg.Logger.Errorf("Limiter failed for key '%s': %v", key, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			if !result.ResetAt.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
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
				cfg.ErrorHandler(w, r, cause, result)
				return
			}

			cfg.Logger.Debugf(
				"Request allowed for key '%s'. Remaining: %d, Limit: %d",
				key, result.Remaining, result.Limit,
			)
			next.ServeHTTP(w, r)
		})
	}
}
