// Package session provides the distributed rate-limit counter an Agent
// Service uses when it is deployed with more than one replica behind a
// shared Redis instance, so per-client limits apply across the whole
// fleet rather than per process.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a fixed-window request count per client key,
// shared across every process pointed at the same Redis instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter builds a limiter against an already-constructed
// client, so callers can point it at a real Redis instance or a
// miniredis instance in tests interchangeably.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments clientID's counter for the current window and
// reports whether the request is within limit. The first increment in
// a window sets its expiry so the counter resets without a separate
// cleanup process.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	key := fmt.Sprintf("reviewmesh:ratelimit:%s", clientID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}

// Reset clears clientID's counter; only the tests call it.
func (l *RedisLimiter) Reset(ctx context.Context, clientID string) error {
	key := fmt.Sprintf("reviewmesh:ratelimit:%s", clientID)
	return l.client.Del(ctx, key).Err()
}
