package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestRedisRateLimiter_AllowPerMinute(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "ip:10.0.0.1", PerMinute(5))
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1", PerMinute(5))
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "ip:10.0.0.2", PerMinute(5))
	require.NoError(t, err)
	assert.True(t, allowed, "keys are independent")
}

func TestRedisRateLimiter_DisabledWindow(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client)

	for i := 0; i < 20; i++ {
		allowed, err := limiter.Allow(context.Background(), "k", Window{Duration: time.Minute})
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRedisRateLimiter_CountAndReset(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "reset-me", PerMinute(10))
		require.NoError(t, err)
	}

	n, err := limiter.Count(ctx, "reset-me", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, limiter.Reset(ctx, "reset-me"))
	n, err = limiter.Count(ctx, "reset-me", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}
