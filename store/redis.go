package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

// ErrMissingClient is returned by NewRedis when no Redis client is provided.
var ErrMissingClient = errors.New("redis client is required")

// RedisStore implements the ratelimiter.Store interface using Redis as the
// backend. It is suitable for distributed systems where multiple application
// instances need to share a common rate-limiting state.
//
// Each key maps to a sorted set whose members are request tokens scored by
// their arrival timestamp, so trimming a time range and counting live entries
// are single Redis commands.
type RedisStore struct {
	client *redis.Client
}

var _ ratelimiter.Store = (*RedisStore)(nil)

// NewRedis creates a new instance of RedisStore on top of an already
// configured client. The client's connection pool, timeouts, and credentials
// stay under the caller's control.
func NewRedis(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, ErrMissingClient
	}

	return &RedisStore{client: client}, nil
}

// RemoveRange deletes every member of key whose score falls within
// [min, max]. It maps directly onto ZREMRANGEBYSCORE.
func (s *RedisStore) RemoveRange(ctx context.Context, key string, min, max int64) error {
	err := s.client.ZRemRangeByScore(ctx, key,
		strconv.FormatInt(min, 10),
		strconv.FormatInt(max, 10),
	).Err()
	if err != nil {
		return fmt.Errorf("removing range for key %q: %w", key, err)
	}

	return nil
}

// Count returns the number of members currently held under key. A missing
// key counts as zero, matching ZCARD.
func (s *RedisStore) Count(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("counting key %q: %w", key, err)
	}

	return n, nil
}

// Insert adds member under key with the given score, creating the sorted set
// if it does not exist yet.
func (s *RedisStore) Insert(ctx context.Context, key string, score int64, member string) error {
	err := s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(score),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("inserting into key %q: %w", key, err)
	}

	return nil
}

// SetExpiry sets key's time to live so abandoned identifiers reclaim their
// memory without an external sweeper.
func (s *RedisStore) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	err := s.client.Expire(ctx, key, ttl).Err()
	if err != nil {
		return fmt.Errorf("setting expiry on key %q: %w", key, err)
	}

	return nil
}
