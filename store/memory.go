// Package store provides storage backends for github.com/sajidfayaz/redis-ratelimiter.
//
// Currently supported backends:
//   - MemoryStore: in-memory store for single-instance applications
//   - RedisStore: Redis-based store for distributed applications
//
// Stores implement the ratelimiter.Store interface, modelling an ordered
// event store: members scored by timestamp, range removal, counting, and
// key expiry.
//
// Example usage:
//
//	ctx := context.Background()
//	store := store.NewMemory(ctx, time.Minute) // cleanup interval = 1 minute
//	limiter, err := ratelimiter.NewSlidingWindow(store, ratelimiter.WithLimit(100))
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

// record is a single scored member of a key's ordered set.
type record struct {
	score  int64
	member string
}

// memoryEntry holds a key's records ordered by ascending score, plus its
// expiration time. A zero expiresAt means the key never expires.
type memoryEntry struct {
	records   []record
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of ratelimiter.Store.
//
// It mirrors the sorted-set semantics of RedisStore, including key expiry
// and the removal of keys whose record set becomes empty, and optionally
// runs a background cleanup goroutine to remove expired entries.
//
// Note: MemoryStore is suitable for single-instance applications.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

var _ ratelimiter.Store = (*MemoryStore)(nil)

// NewMemory creates a new MemoryStore instance.
//
// ctx: a parent context used to manage the lifecycle of the background cleanup goroutine.
// cleanupInterval: interval at which expired entries are removed. Pass 0 to disable cleanup.
//
// Example:
//
//	ctx := context.Background()
//	store := store.NewMemory(ctx, time.Minute)
func NewMemory(ctx context.Context, cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}

	if cleanupInterval > 0 {
		go store.runCleanup(ctx, cleanupInterval)
	}

	return store
}

// RemoveRange deletes every record of key whose score falls within [min, max].
// A key whose record set becomes empty is removed entirely, matching the
// behavior of an empty Redis sorted set.
func (s *MemoryStore) RemoveRange(ctx context.Context, key string, min, max int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return nil
	}

	kept := e.records[:0]
	for _, r := range e.records {
		if r.score < min || r.score > max {
			kept = append(kept, r)
		}
	}
	e.records = kept

	if len(e.records) == 0 {
		delete(s.entries, key)
	}

	return nil
}

// Count returns the number of records currently held under key. A missing or
// expired key counts as zero.
func (s *MemoryStore) Count(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return 0, nil
	}

	return int64(len(e.records)), nil
}

// Insert adds member under key with the given score, creating the key if it
// does not exist. Re-inserting an existing member updates its score, matching
// ZADD.
func (s *MemoryStore) Insert(ctx context.Context, key string, score int64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		e = &memoryEntry{}
		s.entries[key] = e
	}

	for i, r := range e.records {
		if r.member == member {
			e.records = append(e.records[:i], e.records[i+1:]...)
			break
		}
	}

	// First index with a score greater than the new one keeps records
	// ordered and ties in insertion order.
	i := sort.Search(len(e.records), func(i int) bool {
		return e.records[i].score > score
	})
	e.records = append(e.records, record{})
	copy(e.records[i+1:], e.records[i:])
	e.records[i] = record{score: score, member: member}

	return nil
}

// SetExpiry sets key's time to live. Expiry on a missing key is a no-op,
// matching EXPIRE on a key that does not exist.
func (s *MemoryStore) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return nil
	}

	e.expiresAt = time.Now().Add(ttl)
	return nil
}

// live returns the entry for key, lazily evicting it when its TTL has
// passed. Callers must hold s.mu.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, found := s.entries[key]
	if !found {
		return nil
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}

	return e
}

// runCleanup periodically removes entries whose TTL has passed.
func (s *MemoryStore) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()

			for key, e := range s.entries {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
