package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.NotNil(t, cfg.KeyFunc)
	assert.NotNil(t, cfg.ErrorHandler)
	assert.NotNil(t, cfg.Logger)
}

func TestNewConfig_NilOptionsIgnored(t *testing.T) {
	cfg := NewConfig(
		WithKeyFunc(nil),
		WithErrorHandler(nil),
		WithLogger(nil),
	)

	assert.NotNil(t, cfg.KeyFunc)
	assert.NotNil(t, cfg.ErrorHandler)
	assert.NotNil(t, cfg.Logger)
}

func TestNewConfig_Options(t *testing.T) {
	var keyFuncCalled, errorHandlerCalled bool

	cfg := NewConfig(
		WithKeyFunc(func(r *http.Request) (string, error) {
			keyFuncCalled = true
			return "custom", nil
		}),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error, result ratelimiter.Result) {
			errorHandlerCalled = true
		}),
	)

	key, err := cfg.KeyFunc(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "custom", key)
	assert.True(t, keyFuncCalled)

	cfg.ErrorHandler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), ErrLimitExceeded, ratelimiter.Result{})
	assert.True(t, errorHandlerCalled)
}

func TestClientAddress(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:51234"

	key, err := ClientAddress(r)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", key)
}

func TestClientAddress_NoPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1"

	key, err := ClientAddress(r)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", key)
}

func TestForwardedClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{
			name:       "first forwarded entry wins",
			forwarded:  "203.0.113.7, 10.0.0.1, 10.0.0.2",
			remoteAddr: "192.0.2.1:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "single forwarded entry",
			forwarded:  "203.0.113.7",
			remoteAddr: "192.0.2.1:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "real ip fallback",
			realIP:     "203.0.113.9",
			remoteAddr: "192.0.2.1:51234",
			want:       "203.0.113.9",
		},
		{
			name:       "remote addr fallback",
			remoteAddr: "192.0.2.1:51234",
			want:       "192.0.2.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}

			key, err := ForwardedClientAddress(r)
			require.NoError(t, err)
			assert.Equal(t, tc.want, key)
		})
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	defaultErrorHandler(w, r, ErrLimitExceeded, ratelimiter.Result{
		RetryAfter: 90 * time.Second,
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "90", w.Header().Get("Retry-After"))
	assert.Equal(t, "Too Many Requests\n", w.Body.String())
}

func TestDefaultErrorHandler_SubSecondRetryRoundsUp(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	defaultErrorHandler(w, r, ErrLimitExceeded, ratelimiter.Result{
		RetryAfter: 500 * time.Millisecond,
	})

	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestDefaultErrorHandler_NoRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	defaultErrorHandler(w, r, ErrStoreUnavailable, ratelimiter.Result{
		Err: "Rate limiter unavailable",
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "Rate limiter unavailable\n", w.Body.String())
}
