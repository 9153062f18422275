// Package pubsub relays handoff outcomes between gateway instances over
// Redis Pub/Sub, so a credential delivered to one instance reaches the
// long-poll waiting on another.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/repolens/gatekeeper/internal/shared/logger"
)

const handoffChannel = "gatekeeper:handoff:resolve"

// HandoffEvent resolves one pending handoff.
type HandoffEvent struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Token      string `json:"token,omitempty"`
	InstanceID string `json:"instance_id"` // Source instance, skipped on receipt
	Timestamp  int64  `json:"timestamp"`
}

// HandoffEventHandler is called for every event received from other instances.
type HandoffEventHandler func(ctx context.Context, event HandoffEvent)

type HandoffPublisher interface {
	Publish(ctx context.Context, event HandoffEvent) error
}

type HandoffSubscriber interface {
	Subscribe(ctx context.Context, handler HandoffEventHandler) error
}

// RedisHandoffBus implements HandoffPublisher and HandoffSubscriber.
type RedisHandoffBus struct {
	client     *redis.Client
	instanceID string
	logger     logger.Interface
}

func NewRedisHandoffBus(client *redis.Client, instanceID string, logger logger.Interface) *RedisHandoffBus {
	return &RedisHandoffBus{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
	}
}

func (b *RedisHandoffBus) Publish(ctx context.Context, event HandoffEvent) error {
	event.InstanceID = b.instanceID
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff event: %w", err)
	}

	if err := b.client.Publish(ctx, handoffChannel, data).Err(); err != nil {
		b.logger.Errorw("failed to publish handoff event",
			"handoff_id", event.ID,
			"status", event.Status,
			"error", err,
		)
		return fmt.Errorf("failed to publish handoff event: %w", err)
	}

	b.logger.Debugw("handoff event published", "handoff_id", event.ID, "status", event.Status)
	return nil
}

// Subscribe blocks until ctx is done, passing events from other instances to handler.
func (b *RedisHandoffBus) Subscribe(ctx context.Context, handler HandoffEventHandler) error {
	ps := b.client.Subscribe(ctx, handoffChannel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to handoff events", "channel", handoffChannel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("handoff subscriber stopped", "reason", ctx.Err())
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("handoff event channel closed")
				return nil
			}

			var event HandoffEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal handoff event", "error", err)
				continue
			}
			if event.InstanceID == b.instanceID {
				continue
			}

			// Resolution only signals a local channel, so it runs inline.
			handler(ctx, event)
		}
	}
}
