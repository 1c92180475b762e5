package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Construction errors returned by NewSlidingWindow.
var (
	ErrMissingStore  = errors.New("store is required")
	ErrInvalidWindow = errors.New("window must be positive")
	ErrInvalidLimit  = errors.New("limit must be positive")
)

// ErrMissingIdentifier is returned by Consume when the identifier is empty.
// It signals a defect in the caller, not a limiter or store failure, and is
// never folded into the failure-policy outcome.
var ErrMissingIdentifier = errors.New("identifier is required")

// Policy selects the admission outcome when the store is unreachable.
type Policy uint8

const (
	// FailOpen admits the action and marks the result degraded.
	FailOpen Policy = iota
	// FailClosed denies the action and reports the limiter unavailable.
	FailClosed
)

// Defaults applied by NewSlidingWindow when the corresponding option is not
// supplied.
const (
	DefaultWindow = time.Minute
	DefaultLimit  = 100
	DefaultPrefix = "ratelimit"
)

// msgUnavailable is the user-visible description carried by fail-closed
// results.
const msgUnavailable = "Rate limiter unavailable"

// SlidingWindow is a Limiter that admits at most a fixed number of events
// per identifier within a continuously sliding time window. State lives
// entirely in the Store, so a single SlidingWindow is safe for concurrent
// use and instances in different processes sharing one store enforce one
// combined budget.
//
// The expire/count/insert sequence is not atomic across store operations:
// overlapping Consume calls for the same identifier near the budget boundary
// can admit up to (number of in-flight callers - 1) events beyond the limit.
type SlidingWindow struct {
	store  Store
	window time.Duration
	limit  int64
	prefix string
	policy Policy
	logger Logger
	now    func() time.Time
}

var _ Limiter = (*SlidingWindow)(nil)

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithWindow sets the length of the sliding time window. Values <= 0 are
// rejected at construction.
func WithWindow(window time.Duration) Option {
	return func(sw *SlidingWindow) {
		sw.window = window
	}
}

// WithLimit sets the maximum number of admitted events per identifier per
// window. Values <= 0 are rejected at construction.
func WithLimit(limit int64) Option {
	return func(sw *SlidingWindow) {
		sw.limit = limit
	}
}

// WithPrefix sets the namespace prepended to identifier keys, isolating this
// limiter's records from others sharing the same store. Empty prefixes are
// ignored.
func WithPrefix(prefix string) Option {
	return func(sw *SlidingWindow) {
		if prefix != "" {
			sw.prefix = prefix
		}
	}
}

// WithPolicy selects the failure policy applied when a store operation
// fails.
func WithPolicy(policy Policy) Option {
	return func(sw *SlidingWindow) {
		sw.policy = policy
	}
}

// WithLogger sets the logger notified about store failures. Nil loggers are
// ignored.
func WithLogger(logger Logger) Option {
	return func(sw *SlidingWindow) {
		if logger != nil {
			sw.logger = logger
		}
	}
}

// NewSlidingWindow creates a sliding-window limiter backed by store.
//
// Without options the limiter admits DefaultLimit events per DefaultWindow
// under the DefaultPrefix namespace and fails open when the store is
// unreachable.
func NewSlidingWindow(store Store, opts ...Option) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrMissingStore
	}

	sw := &SlidingWindow{
		store:  store,
		window: DefaultWindow,
		limit:  DefaultLimit,
		prefix: DefaultPrefix,
		policy: FailOpen,
		logger: NopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(sw)
	}

	if sw.window <= 0 {
		return nil, ErrInvalidWindow
	}
	if sw.limit <= 0 {
		return nil, ErrInvalidLimit
	}

	return sw, nil
}

// Consume checks whether one more action by identifier fits the budget for
// the current window and records it if so.
//
// The decision is always deterministic: store failures are resolved into the
// Result according to the configured Policy and reported to the logger, never
// returned. The only error condition is an empty identifier.
func (sw *SlidingWindow) Consume(ctx context.Context, identifier string) (Result, error) {
	if identifier == "" {
		return Result{}, ErrMissingIdentifier
	}

	var (
		key         = sw.prefix + ":" + identifier
		now         = sw.now()
		nowMillis   = now.UnixMilli()
		windowStart = nowMillis - sw.window.Milliseconds()
	)

	// Expire activity that slid out of the window before counting.
	if err := sw.store.RemoveRange(ctx, key, 0, windowStart); err != nil {
		return sw.resolve(key, err), nil
	}

	count, err := sw.store.Count(ctx, key)
	if err != nil {
		return sw.resolve(key, err), nil
	}

	if count >= sw.limit {
		return Result{
			Allowed:    false,
			Limit:      sw.limit,
			Remaining:  0,
			RetryAfter: sw.ttl(),
		}, nil
	}

	if err := sw.store.Insert(ctx, key, nowMillis, uuid.New().String()); err != nil {
		return sw.resolve(key, err), nil
	}

	if err := sw.store.SetExpiry(ctx, key, sw.ttl()); err != nil {
		return sw.resolve(key, err), nil
	}

	return Result{
		Allowed:   true,
		Limit:     sw.limit,
		Remaining: sw.limit - count - 1,
		ResetAt:   now.Add(sw.window),
	}, nil
}

// resolve turns a store failure into the policy outcome, surfacing the cause
// only through the logger so callers always receive a decision.
func (sw *SlidingWindow) resolve(key string, err error) Result {
	sw.logger.Errorf("store unavailable for key %q: %v", key, err)

	if sw.policy == FailClosed {
		return Result{
			Allowed: false,
			Limit:   sw.limit,
			Err:     msgUnavailable,
		}
	}

	return Result{
		Allowed:  true,
		Limit:    sw.limit,
		Degraded: true,
	}
}

// ttl is the window length rounded up to whole seconds. It serves both as
// the key's time-to-live backstop and as the retry hint on denials.
func (sw *SlidingWindow) ttl() time.Duration {
	return (sw.window + time.Second - 1) / time.Second * time.Second
}
