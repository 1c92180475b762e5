// Package middleware holds the configuration shared by the HTTP middleware
// implementations in its subpackages.
//
// The subpackages adapt a ratelimiter.Limiter to specific frameworks:
// middleware/nethttp wraps standard net/http handlers and middleware/gin
// provides a Gin handler. Both consume the Config defined here, customized
// through functional options.
package middleware

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

// ErrLimitExceeded is passed to the ErrorHandler when an identifier is over
// budget. Custom error handlers can check for this specific condition.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// ErrStoreUnavailable is passed to the ErrorHandler when a request is denied
// because the store was unreachable under the fail-closed policy. It lets
// callers distinguish "over budget" from "limiter degraded".
var ErrStoreUnavailable = errors.New("rate limiter unavailable")

// KeyFunc extracts the identifier to rate limit by from an incoming HTTP
// request. Common implementations use the client's network address or an API
// key from a header.
type KeyFunc func(r *http.Request) (string, error)

// ErrorHandler defines how to respond to a client whose request was denied.
// This gives the user full control over the status code, headers, and body
// of the error response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, result ratelimiter.Result)

// Config holds all configurable parameters for the middleware.
// It is an internal struct that users interact with via functional options.
type Config struct {
	KeyFunc      KeyFunc
	ErrorHandler ErrorHandler
	Logger       ratelimiter.Logger
}

// Option applies a configuration setting to a Config.
type Option func(*Config)

// NewConfig creates a Config with default settings and then applies any
// provided functional options.
//
// Defaults: identifiers are the client's originating network address, denied
// requests receive a plain 429 response carrying Retry-After when available,
// and logging is disabled.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		KeyFunc:      ClientAddress,
		ErrorHandler: defaultErrorHandler,
		Logger:       ratelimiter.NopLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithKeyFunc sets a custom function for client identification. This allows
// rate limiting based on criteria like API keys, user IDs, etc.
func WithKeyFunc(f KeyFunc) Option {
	return func(c *Config) {
		if f != nil {
			c.KeyFunc = f
		}
	}
}

// WithErrorHandler sets a custom handler for denied requests. Useful for
// sending structured error responses or logging detailed information.
func WithErrorHandler(f ErrorHandler) Option {
	return func(c *Config) {
		if f != nil {
			c.ErrorHandler = f
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l ratelimiter.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// ClientAddress is the default KeyFunc. It returns the request's originating
// network address without the port, falling back to the raw RemoteAddr when
// it cannot be split.
func ClientAddress(r *http.Request) (string, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, nil
	}

	return host, nil
}

// ForwardedClientAddress is a KeyFunc for deployments behind a trusted
// reverse proxy. It prefers the first X-Forwarded-For entry, then X-Real-IP,
// then falls back to ClientAddress.
func ForwardedClientAddress(r *http.Request) (string, error) {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first, nil
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri, nil
	}

	return ClientAddress(r)
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error, result ratelimiter.Result) {
	if result.RetryAfter > 0 {
		retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	msg := "Too Many Requests"
	if result.Err != "" {
		msg = result.Err
	}

	http.Error(w, msg, http.StatusTooManyRequests)
}
