package pubsub

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
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisHandoffBus_CrossInstance(t *testing.T) {
	client := setupTestRedis(t)
	a := NewRedisHandoffBus(client, "instance-a", logger.NewNop())
	b := NewRedisHandoffBus(client, "instance-b", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan HandoffEvent, 2)
	subscribed := make(chan struct{})
	go func() {
		close(subscribed)
		_ = a.Subscribe(ctx, func(_ context.Context, ev HandoffEvent) { received <- ev })
	}()
	<-subscribed
	// Give the subscription time to register before publishing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, a.Publish(ctx, HandoffEvent{ID: "hf_self", Status: "delivered"}))
	require.NoError(t, b.Publish(ctx, HandoffEvent{ID: "hf_1", Status: "delivered", Token: "tok"}))

	select {
	case ev := <-received:
		assert.Equal(t, "hf_1", ev.ID, "own events are skipped")
		assert.Equal(t, "tok", ev.Token)
		assert.Equal(t, "instance-b", ev.InstanceID)
	case <-time.After(2 * time.Second):
		t.Fatal("handoff event not received")
	}
}
