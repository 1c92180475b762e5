package nethttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajidfayaz/redis-ratelimiter/middleware"
	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

// fakeLimiter returns a scripted result and records the identifier it saw.
type fakeLimiter struct {
	result ratelimiter.Result
	err    error
	gotKey string
}

func (f *fakeLimiter) Consume(ctx context.Context, identifier string) (ratelimiter.Result, error) {
	f.gotKey = identifier
	return f.result, f.err
}

type recordingLogger struct {
	debugs []string
	errors []string
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) {
	l.debugs = append(l.debugs, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func serve(limiter ratelimiter.Limiter, opts ...middleware.Option) (*httptest.ResponseRecorder, bool) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:51234"
	w := httptest.NewRecorder()

	Middleware(limiter, opts...)(next).ServeHTTP(w, r)
	return w, nextCalled
}

func TestMiddleware_Allowed(t *testing.T) {
	resetAt := time.Date(2025, time.March, 1, 12, 0, 30, 0, time.UTC)
	limiter := &fakeLimiter{result: ratelimiter.Result{
		Allowed:   true,
		Limit:     5,
		Remaining: 4,
		ResetAt:   resetAt,
	}}

	w, nextCalled := serve(limiter)

	assert.True(t, nextCalled)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1740830430", w.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_KeyFromRemoteAddr(t *testing.T) {
	limiter := &fakeLimiter{result: ratelimiter.Result{Allowed: true}}

	serve(limiter)

	assert.Equal(t, "192.0.2.1", limiter.gotKey)
}

func TestMiddleware_Denied(t *testing.T) {
	limiter := &fakeLimiter{result: ratelimiter.Result{
		Allowed:    false,
		Limit:      5,
		Remaining:  0,
		RetryAfter: time.Minute,
	}}

	w, nextCalled := serve(limiter)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_DeniedCause(t *testing.T) {
	var gotErr error
	capture := middleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error, result ratelimiter.Result) {
		gotErr = err
		w.WriteHeader(http.StatusTooManyRequests)
	})

	limiter := &fakeLimiter{result: ratelimiter.Result{Allowed: false}}
	serve(limiter, capture)
	assert.ErrorIs(t, gotErr, middleware.ErrLimitExceeded)

	limiter = &fakeLimiter{result: ratelimiter.Result{
		Allowed: false,
		Err:     "Rate limiter unavailable",
	}}
	serve(limiter, capture)
	assert.ErrorIs(t, gotErr, middleware.ErrStoreUnavailable)
}

func TestMiddleware_Degraded(t *testing.T) {
	logger := &recordingLogger{}
	limiter := &fakeLimiter{result: ratelimiter.Result{
		Allowed:  true,
		Limit:    5,
		Degraded: true,
	}}

	w, nextCalled := serve(limiter, middleware.WithLogger(logger))

	assert.True(t, nextCalled, "degraded requests pass through")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "degraded")
}

func TestMiddleware_LimiterError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("empty identifier")}

	w, nextCalled := serve(limiter)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMiddleware_KeyFuncError(t *testing.T) {
	limiter := &fakeLimiter{result: ratelimiter.Result{Allowed: true}}

	w, nextCalled := serve(limiter, middleware.WithKeyFunc(func(r *http.Request) (string, error) {
		return "", errors.New("no api key")
	}))

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, limiter.gotKey, "limiter should not be consulted")
}
