package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisLimiter(client, limit, window), mr
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i)
	}

	ok, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLimiter_SeparateClientsIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	okA, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, okA)

	okB, err := limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, okB)
}

func TestRedisLimiter_WindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Second)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)

	require.NoError(t, limiter.Reset(ctx, "client-a"))

	ok, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, ok)
}
