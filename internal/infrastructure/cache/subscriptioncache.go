package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// CachedSubscription is the snapshot of a subscription row kept in Redis.
type CachedSubscription struct {
	ID           uint
	PlanSlug     string
	Status       string
	PeriodType   string
	Limit        int
	BatchCeiling int
	ExternalRef  string
	CustomerRef  string
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	LastEventID  string
	LastEventAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NotFound     bool // Null marker: subject confirmed to have no row
}

// ErrFenceMoved is returned by Set and SetNullMarker when the subject was
// invalidated after the caller took its fence. Nothing is written.
var ErrFenceMoved = errors.New("subscription cache invalidated during read")

// SubscriptionCache caches subscription snapshots by subject.
//
// Readers take Fence before loading from the database and hand it back to
// Set or SetNullMarker. Invalidate advances the fence, so a snapshot read
// before a concurrent write cannot land after that write's invalidation.
type SubscriptionCache interface {
	Get(ctx context.Context, subject string) (*CachedSubscription, error)
	Fence(ctx context.Context, subject string) (int64, error)
	Set(ctx context.Context, subject string, fence int64, snapshot *CachedSubscription) error
	// SetNullMarker remembers that the subject has no subscription row so
	// free-plan reads do not hit the database every time.
	SetNullMarker(ctx context.Context, subject string, fence int64) error
	Invalidate(ctx context.Context, subject string) error
}

const (
	subscriptionKeyPrefix = "gatekeeper:subscription:"
	fenceKeyPrefix        = "gatekeeper:subscription-fence:"
	snapshotTTLJitterPct  = 25
	nullMarkerTTL         = 2 * time.Minute
	// fenceTTL outlives any database read; an expired fence reads as 0,
	// which only ever makes an in-flight write fail.
	fenceTTL = 10 * time.Minute

	fieldID           = "id"
	fieldPlanSlug     = "plan_slug"
	fieldStatus       = "status"
	fieldPeriodType   = "period_type"
	fieldLimit        = "limit"
	fieldBatchCeiling = "batch_ceiling"
	fieldExternalRef  = "external_ref"
	fieldCustomerRef  = "customer_ref"
	fieldPeriodStart  = "period_start"
	fieldPeriodEnd    = "period_end"
	fieldLastEventID  = "last_event_id"
	fieldLastEventAt  = "last_event_at"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
	fieldNullMarker   = "_null"
)

// RedisSubscriptionCache implements SubscriptionCache using a Redis hash per subject.
type RedisSubscriptionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Interface
}

func NewRedisSubscriptionCache(client *redis.Client, ttl time.Duration, logger logger.Interface) *RedisSubscriptionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSubscriptionCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisSubscriptionCache) key(subject string) string {
	return subscriptionKeyPrefix + subject
}

func (c *RedisSubscriptionCache) fenceKey(subject string) string {
	return fenceKeyPrefix + subject
}

// Get returns nil, nil on a cache miss.
func (c *RedisSubscriptionCache) Get(ctx context.Context, subject string) (*CachedSubscription, error) {
	result, err := c.client.HGetAll(ctx, c.key(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil
	}

	if result[fieldNullMarker] == "1" {
		return &CachedSubscription{NotFound: true}, nil
	}

	snap := &CachedSubscription{
		PlanSlug:    result[fieldPlanSlug],
		Status:      result[fieldStatus],
		PeriodType:  result[fieldPeriodType],
		ExternalRef: result[fieldExternalRef],
		CustomerRef: result[fieldCustomerRef],
		LastEventID: result[fieldLastEventID],
		PeriodStart: parseUnix(result[fieldPeriodStart]),
		PeriodEnd:   parseUnix(result[fieldPeriodEnd]),
		LastEventAt: parseUnix(result[fieldLastEventAt]),
	}
	if id, err := strconv.ParseUint(result[fieldID], 10, 64); err == nil {
		snap.ID = uint(id)
	}
	snap.Limit, err = strconv.Atoi(result[fieldLimit])
	if err != nil || snap.ID == 0 || snap.PlanSlug == "" {
		// Partially written or foreign entry; treat as a miss.
		return nil, nil
	}
	snap.BatchCeiling, _ = strconv.Atoi(result[fieldBatchCeiling])
	if t := parseUnix(result[fieldCreatedAt]); t != nil {
		snap.CreatedAt = *t
	}
	if t := parseUnix(result[fieldUpdatedAt]); t != nil {
		snap.UpdatedAt = *t
	}

	return snap, nil
}

// Fence returns the subject's invalidation counter, 0 when none is stored.
func (c *RedisSubscriptionCache) Fence(ctx context.Context, subject string) (int64, error) {
	n, err := c.client.Get(ctx, c.fenceKey(subject)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read subscription cache fence: %w", err)
	}
	return n, nil
}

// writeFenced runs write in a MULTI/EXEC that only commits while the fence
// still equals fence. WATCH aborts the transaction if Invalidate lands
// between the check and EXEC.
func (c *RedisSubscriptionCache) writeFenced(ctx context.Context, subject string, fence int64, write func(pipe redis.Pipeliner)) error {
	fk := c.fenceKey(subject)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != fence {
			return ErrFenceMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}, fk)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrFenceMoved
	}
	return err
}

func (c *RedisSubscriptionCache) Set(ctx context.Context, subject string, fence int64, snap *CachedSubscription) error {
	key := c.key(subject)

	fields := map[string]any{
		fieldID:           snap.ID,
		fieldPlanSlug:     snap.PlanSlug,
		fieldStatus:       snap.Status,
		fieldPeriodType:   snap.PeriodType,
		fieldLimit:        snap.Limit,
		fieldBatchCeiling: snap.BatchCeiling,
		fieldExternalRef:  snap.ExternalRef,
		fieldCustomerRef:  snap.CustomerRef,
		fieldPeriodStart:  formatUnix(snap.PeriodStart),
		fieldPeriodEnd:    formatUnix(snap.PeriodEnd),
		fieldLastEventID:  snap.LastEventID,
		fieldLastEventAt:  formatUnix(snap.LastEventAt),
		fieldCreatedAt:    formatUnix(&snap.CreatedAt),
		fieldUpdatedAt:    formatUnix(&snap.UpdatedAt),
	}

	err := c.writeFenced(ctx, subject, fence, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, c.ttlWithJitter())
	})
	if errors.Is(err, ErrFenceMoved) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to set subscription in cache: %w", err)
	}

	c.logger.Debugw("subscription snapshot cached",
		"subject", subject,
		"plan", snap.PlanSlug,
		"status", snap.Status,
	)

	return nil
}

func (c *RedisSubscriptionCache) SetNullMarker(ctx context.Context, subject string, fence int64) error {
	key := c.key(subject)

	err := c.writeFenced(ctx, subject, fence, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldNullMarker, "1")
		pipe.Expire(ctx, key, nullMarkerTTL)
	})
	if errors.Is(err, ErrFenceMoved) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to set null marker in cache: %w", err)
	}

	return nil
}

// Invalidate drops the snapshot and advances the fence in one transaction.
func (c *RedisSubscriptionCache) Invalidate(ctx context.Context, subject string) error {
	fk := c.fenceKey(subject)

	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, fk)
	pipe.Expire(ctx, fk, fenceTTL)
	pipe.Del(ctx, c.key(subject))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate subscription cache: %w", err)
	}

	c.logger.Debugw("subscription cache invalidated", "subject", subject)
	return nil
}

// ttlWithJitter spreads expiry over [ttl, ttl*1.25) so snapshots written in a
// burst do not all expire together.
func (c *RedisSubscriptionCache) ttlWithJitter() time.Duration {
	span := int64(c.ttl) * snapshotTTLJitterPct / 100
	if span <= 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int64N(span))
}

func formatUnix(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseUnix(s string) *time.Time {
	if s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
