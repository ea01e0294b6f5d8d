package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitStore keeps sliding-window request logs in Redis sorted sets so
// quotas are shared across instances.
// Key format: ratelimit:<scope>:<identity>, scored by unix milliseconds.
type RateLimitStore struct {
	client *redis.Client
}

// NewRateLimitStore creates a RateLimitStore wrapping the given Redis client.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Count trims entries older than windowStart and returns the remainder.
func (s *RateLimitStore) Count(ctx context.Context, key string, windowStart time.Time) (int, error) {
	k := s.key(key)
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(windowStart.UnixMilli(), 10))
	card := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit count: %w", err)
	}
	return int(card.Val()), nil
}

// Increment logs one request at the given instant.
func (s *RateLimitStore) Increment(ctx context.Context, key string, at time.Time) error {
	member := redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()}
	if err := s.client.ZAdd(ctx, s.key(key), member).Err(); err != nil {
		return fmt.Errorf("rate limit increment: %w", err)
	}
	return nil
}

// Expire lets an idle key lapse after ttl.
func (s *RateLimitStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.PExpire(ctx, s.key(key), ttl).Err(); err != nil {
		return fmt.Errorf("rate limit expire: %w", err)
	}
	return nil
}

func (s *RateLimitStore) key(key string) string {
	return "ratelimit:" + key
}
