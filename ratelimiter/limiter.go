// Package ratelimiter provides distributed sliding-window rate limiting on
// top of a shared ordered event store.
//
// The package defines three core abstractions:
//   - Limiter: the admission-control interface middleware and users interact with
//   - Store: the ordered event store capability the algorithm runs against
//   - Result: the outcome of one admission decision, sized for HTTP headers
//
// All mutable state lives in the store, so one limiter can be shared by any
// number of goroutines and, with a networked store such as Redis, by any
// number of processes.
package ratelimiter

import (
	"context"
	"time"
)

// Result contains the outcome of one admission decision.
//
// It provides the necessary data to populate standard rate-limiting HTTP headers
// such as `X-RateLimit-Limit`, `X-RateLimit-Remaining`, and `X-RateLimit-Reset`.
type Result struct {
	// Allowed indicates whether the action is permitted.
	Allowed bool
	// Limit is the maximum number of events per identifier per window.
	Limit int64
	// Remaining is the budget left in the current window. It is advisory:
	// overlapping calls for the same identifier may observe stale counts.
	Remaining int64
	// ResetAt is when a full budget is available again. Set only on allowed
	// decisions made against a healthy store.
	ResetAt time.Time
	// RetryAfter is how long to wait before the next attempt. Set only on
	// denied decisions made against a healthy store.
	RetryAfter time.Duration
	// Degraded marks an action admitted without a healthy store under the
	// fail-open policy.
	Degraded bool
	// Err carries the user-visible failure description when the store was
	// unavailable under the fail-closed policy. Empty otherwise.
	Err string
}

// Limiter decides whether the next action by an identifier is permitted.
//
// It is the primary interface that middleware and users interact with.
type Limiter interface {
	// Consume records one action for the identifier if it fits the budget
	// and reports the decision. Store failures never surface as errors;
	// they are resolved into the Result according to the configured failure
	// policy. The returned error is reserved for call-contract violations
	// such as an empty identifier.
	Consume(ctx context.Context, identifier string) (Result, error)
}

// Store is the ordered event store capability the sliding-window algorithm
// requires. Records under a key are ordered by score; the limiter uses Unix
// millisecond timestamps as scores.
//
// This abstraction allows interchangeable backends such as in-memory stores
// or Redis for distributed rate limiting.
type Store interface {
	// RemoveRange deletes all records under key whose score lies in
	// [min, max].
	RemoveRange(ctx context.Context, key string, min, max int64) error

	// Count returns the number of records currently under key.
	Count(ctx context.Context, key string) (int64, error)

	// Insert adds one record with the given score and unique member. A
	// record with an equal score must not silently overwrite a distinct
	// one; records sharing a score coexist as long as their members differ.
	Insert(ctx context.Context, key string, score int64, member string) error

	// SetExpiry sets or refreshes the time-to-live on key so state for idle
	// identifiers is eventually reclaimed.
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
}
