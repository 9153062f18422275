package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/shared/logger"
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

func TestRedisSubscriptionCache_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	c := NewRedisSubscriptionCache(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	miss, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	snap := &CachedSubscription{
		ID:          7,
		PlanSlug:    "pro",
		Status:      "active",
		PeriodType:  "daily",
		Limit:       -1,
		ExternalRef: "sub_123",
		PeriodEnd:   &end,
		CreatedAt:   end.Add(-time.Hour),
		UpdatedAt:   end,
	}
	require.NoError(t, c.Set(ctx, "u1", 0, snap))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, -1, got.Limit)
	assert.Nil(t, got.PeriodStart)
	require.NotNil(t, got.PeriodEnd)
	assert.True(t, end.Equal(*got.PeriodEnd))

	ttl := client.TTL(ctx, c.key("u1")).Val()
	assert.GreaterOrEqual(t, ttl, 59*time.Second)
	assert.LessOrEqual(t, ttl, 75*time.Second)

	require.NoError(t, c.Invalidate(ctx, "u1"))
	got, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSubscriptionCache_NullMarker(t *testing.T) {
	client := setupTestRedis(t)
	c := NewRedisSubscriptionCache(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.SetNullMarker(ctx, "ghost", 0))
	got, err := c.Get(ctx, "ghost")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.NotFound)
	assert.LessOrEqual(t, client.TTL(ctx, c.key("ghost")).Val(), nullMarkerTTL)

	require.NoError(t, c.Set(ctx, "ghost", 0, &CachedSubscription{ID: 1, PlanSlug: "free", Status: "active", PeriodType: "one_time", Limit: 3}))
	got, err = c.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, got.NotFound, "Set replaces the marker")
}

// A snapshot read before an invalidation must not be written after it.
func TestRedisSubscriptionCache_FenceRejectsStaleWrites(t *testing.T) {
	client := setupTestRedis(t)
	c := NewRedisSubscriptionCache(client, time.Minute, logger.NewNop())
	ctx := context.Background()
	stale := &CachedSubscription{ID: 1, PlanSlug: "pro", Status: "active", PeriodType: "daily", Limit: 100}

	fence, err := c.Fence(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, fence)

	require.NoError(t, c.Invalidate(ctx, "u1"))

	assert.ErrorIs(t, c.Set(ctx, "u1", fence, stale), ErrFenceMoved)
	assert.ErrorIs(t, c.SetNullMarker(ctx, "u1", fence), ErrFenceMoved)
	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	fence, err = c.Fence(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fence)
	require.NoError(t, c.Set(ctx, "u1", fence, stale))
	got, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pro", got.PlanSlug)
	assert.LessOrEqual(t, client.TTL(ctx, c.fenceKey("u1")).Val(), fenceTTL)
}
