// Package services implements per-subject usage counting and quota decisions.
package services

import (
	"context"
	"time"

	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// Counter wraps the counter store. Every mutation is a single atomic
// statement in the store; nothing here reads and then writes.
type Counter struct {
	repo   usage.CounterRepository
	logger logger.Interface
}

func NewCounter(repo usage.CounterRepository, logger logger.Interface) *Counter {
	return &Counter{repo: repo, logger: logger}
}

// PeriodKey returns the counting window for quota at now: the business-day
// date for daily quotas and a constant for one-time quotas.
func (c *Counter) PeriodKey(quota vo.Quota, now time.Time) string {
	return quota.PeriodKey(now, biztime.DayKey)
}

func (c *Counter) Increment(ctx context.Context, subject, action, periodKey string) (int64, error) {
	key := usage.CounterKey{Subject: subject, Action: action, PeriodKey: periodKey}
	if err := key.Validate(); err != nil {
		return 0, err
	}
	return c.repo.Increment(ctx, key)
}

// Peek returns the current count, 0 when the window has no row.
func (c *Counter) Peek(ctx context.Context, subject, action, periodKey string) (int64, error) {
	key := usage.CounterKey{Subject: subject, Action: action, PeriodKey: periodKey}
	if err := key.Validate(); err != nil {
		return 0, err
	}
	return c.repo.Get(ctx, key)
}

// CheckAndReserve decides from the current count whether one more action
// fits in quota. It does not mutate; a caller that goes ahead must reserve
// with ReserveIfBelow (limited) or Increment (unlimited).
func (c *Counter) CheckAndReserve(ctx context.Context, subject, action, periodKey string, quota vo.Quota) (usage.Decision, error) {
	used, err := c.Peek(ctx, subject, action, periodKey)
	if err != nil {
		return usage.Decision{}, err
	}
	return decide(quota, used), nil
}

// ReserveIfBelow increments only while the count is below limit, in one
// conditional statement, so concurrent callers can never push the count past
// limit. Used and Remaining describe the state after the attempt.
func (c *Counter) ReserveIfBelow(ctx context.Context, subject, action, periodKey string, limit int64) (usage.Decision, error) {
	key := usage.CounterKey{Subject: subject, Action: action, PeriodKey: periodKey}
	if err := key.Validate(); err != nil {
		return usage.Decision{}, err
	}

	allowed, used, err := c.repo.IncrementIfBelow(ctx, key, limit)
	if err != nil {
		return usage.Decision{}, err
	}

	d := usage.Decision{
		Allowed:   allowed,
		Limit:     limit,
		Used:      used,
		Remaining: max(limit-used, 0),
	}
	if !allowed {
		c.logger.Debugw("reservation lost at limit", "subject", subject, "action", action, "period", periodKey, "used", used)
	}
	return d, nil
}

func decide(quota vo.Quota, used int64) usage.Decision {
	if quota.IsUnlimited() {
		return usage.Decision{
			Allowed:   true,
			Limit:     vo.Unlimited,
			Used:      used,
			Remaining: vo.Unlimited,
		}
	}
	return usage.Decision{
		Allowed:   quota.Allows(used),
		Limit:     int64(quota.Limit),
		Used:      used,
		Remaining: quota.Remaining(used),
	}
}
