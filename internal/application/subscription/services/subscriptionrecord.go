package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/user"
	"github.com/repolens/gatekeeper/internal/infrastructure/cache"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// Transactor runs fn in a database transaction.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SyncCommand is a billing-driven state change. An empty PlanSlug keeps the
// subject's current plan (payment events do not name one).
type SyncCommand struct {
	CustomerRef string
	PlanSlug    string
	Status      vo.SubscriptionStatus
	ExternalRef string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	EventID     string
	OccurredAt  time.Time
}

// ApplyResult reports what a sync did. Skipped events are acknowledged to the
// provider; Reason says why they were skipped.
type ApplyResult struct {
	Subject string
	Changed bool
	Skipped bool
	Reason  string
}

// SubscriptionRecord owns the per-subject subscription row and its cache.
type SubscriptionRecord struct {
	subs   subscription.SubscriptionRepository
	users  user.Repository
	plans  *PlanRegistry
	cache  cache.SubscriptionCache
	tx     Transactor
	logger logger.Interface
}

// NewSubscriptionRecord builds the record service. snapshotCache may be nil.
func NewSubscriptionRecord(
	subs subscription.SubscriptionRepository,
	users user.Repository,
	plans *PlanRegistry,
	snapshotCache cache.SubscriptionCache,
	tx Transactor,
	logger logger.Interface,
) *SubscriptionRecord {
	return &SubscriptionRecord{
		subs:   subs,
		users:  users,
		plans:  plans,
		cache:  snapshotCache,
		tx:     tx,
		logger: logger,
	}
}

// Get returns the subject's subscription, or a transient default-plan one
// when no billing event has been seen. It never writes to the database.
func (r *SubscriptionRecord) Get(ctx context.Context, subject string) (*subscription.Subscription, error) {
	if sub, ok := r.fromCache(ctx, subject); ok {
		if sub != nil {
			return sub, nil
		}
		return r.transient(ctx, subject)
	}

	fence, fenced := r.cacheFence(ctx, subject)
	sub, err := r.subs.GetBySubject(ctx, subject)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		transient, err := r.transient(ctx, subject)
		if err != nil {
			return nil, err
		}
		if fenced {
			r.cacheNullMarker(ctx, subject, fence)
		}
		return transient, nil
	}
	if err != nil {
		return nil, err
	}

	if fenced {
		r.cacheSet(ctx, sub, fence)
	}
	return sub, nil
}

func (r *SubscriptionRecord) transient(ctx context.Context, subject string) (*subscription.Subscription, error) {
	plan, err := r.plans.GetDefaultPlan(ctx)
	if err != nil {
		return nil, err
	}
	return subscription.NewTransientSubscription(subject, plan), nil
}

// ApplyBillingEvent upserts the subscription of the customer's subject.
// Replays of an already applied state change nothing but timestamps.
func (r *SubscriptionRecord) ApplyBillingEvent(ctx context.Context, cmd SyncCommand) (ApplyResult, error) {
	u, err := r.users.GetByBillingCustomerID(ctx, cmd.CustomerRef)
	if errors.Is(err, user.ErrUserNotFound) {
		r.logger.Warnw("billing event for unknown customer skipped",
			"customer_ref", cmd.CustomerRef,
			"event_id", cmd.EventID,
		)
		return ApplyResult{Skipped: true, Reason: subscription.ErrSubjectUnresolvable.Error()}, nil
	}
	if err != nil {
		return ApplyResult{}, err
	}
	subject := u.Subject()

	if cmd.Status == vo.StatusCanceled {
		return r.cancel(ctx, subject, cmd.ExternalRef, cmd.EventID, cmd.OccurredAt)
	}

	result := ApplyResult{Subject: subject}
	err = r.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := r.subs.GetBySubject(ctx, subject)
		if err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return err
		}

		// Only an active created or updated event may rebind the row to a new
		// provider subscription; anything else about an old one is acked.
		if current != nil && current.TracksOther(cmd.ExternalRef) &&
			(cmd.PlanSlug == "" || cmd.Status != vo.StatusActive) {
			result.Skipped = true
			result.Reason = subscription.ErrSupersededSubscription.Error()
			return nil
		}

		slug := cmd.PlanSlug
		if slug == "" {
			if current == nil {
				result.Skipped = true
				result.Reason = "no subscription to update"
				return nil
			}
			slug = current.PlanSlug()
		}

		plan, err := r.plans.GetPlan(ctx, slug)
		if err != nil {
			return fmt.Errorf("resolve plan %q: %w", slug, err)
		}

		state := subscription.SyncState{
			PlanSlug:    plan.Slug(),
			Quota:       plan.Quota(),
			Status:      cmd.Status,
			ExternalRef: cmd.ExternalRef,
			CustomerRef: cmd.CustomerRef,
			PeriodStart: cmd.PeriodStart,
			PeriodEnd:   cmd.PeriodEnd,
			EventID:     cmd.EventID,
			OccurredAt:  cmd.OccurredAt,
		}

		if current == nil {
			created, err := subscription.NewSubscription(subject, state)
			if err != nil {
				return err
			}
			result.Changed = true
			return r.subs.Save(ctx, created)
		}

		changed, err := current.Apply(state)
		if errors.Is(err, subscription.ErrStaleEvent) || errors.Is(err, subscription.ErrInvalidStatusTransition) {
			result.Skipped = true
			result.Reason = err.Error()
			return nil
		}
		if err != nil {
			return err
		}
		result.Changed = changed
		return r.subs.Save(ctx, current)
	})
	if err != nil {
		r.logger.Errorw("failed to apply billing event", "error", err, "subject", subject, "event_id", cmd.EventID)
		return ApplyResult{}, err
	}

	if result.Skipped {
		r.logger.Warnw("billing event skipped", "subject", subject, "event_id", cmd.EventID, "reason", result.Reason)
		return result, nil
	}

	r.invalidate(ctx, subject)
	r.logger.Infow("subscription synced",
		"subject", subject,
		"plan", cmd.PlanSlug,
		"status", cmd.Status,
		"changed", result.Changed,
		"event_id", cmd.EventID,
	)
	return result, nil
}

// CancelToDefault puts the subject on the default plan with the plan's
// current quota. A subject without a subscription row is left alone.
func (r *SubscriptionRecord) CancelToDefault(ctx context.Context, subject string) error {
	_, err := r.cancel(ctx, subject, "", "", time.Time{})
	return err
}

// CancelByCustomer resolves the subject from a billing customer and cancels.
// A cancellation of a provider subscription other than the one the row is
// bound to is skipped.
func (r *SubscriptionRecord) CancelByCustomer(ctx context.Context, customerRef, externalRef, eventID string, at time.Time) (ApplyResult, error) {
	u, err := r.users.GetByBillingCustomerID(ctx, customerRef)
	if errors.Is(err, user.ErrUserNotFound) {
		r.logger.Warnw("cancellation for unknown customer skipped", "customer_ref", customerRef, "event_id", eventID)
		return ApplyResult{Skipped: true, Reason: subscription.ErrSubjectUnresolvable.Error()}, nil
	}
	if err != nil {
		return ApplyResult{}, err
	}
	return r.cancel(ctx, u.Subject(), externalRef, eventID, at)
}

func (r *SubscriptionRecord) cancel(ctx context.Context, subject, externalRef, eventID string, at time.Time) (ApplyResult, error) {
	result := ApplyResult{Subject: subject}

	err := r.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := r.subs.GetBySubject(ctx, subject)
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			result.Skipped = true
			result.Reason = "no subscription to cancel"
			return nil
		}
		if err != nil {
			return err
		}
		if current.TracksOther(externalRef) {
			result.Skipped = true
			result.Reason = subscription.ErrSupersededSubscription.Error()
			return nil
		}
		if current.LastEventAt() != nil && !at.IsZero() && at.Before(*current.LastEventAt()) {
			result.Skipped = true
			result.Reason = subscription.ErrStaleEvent.Error()
			return nil
		}

		plan, err := r.plans.GetDefaultPlan(ctx)
		if err != nil {
			return err
		}
		result.Changed = current.CancelToDefault(plan, eventID, at)
		return r.subs.Save(ctx, current)
	})
	if err != nil {
		r.logger.Errorw("failed to cancel subscription", "error", err, "subject", subject, "event_id", eventID)
		return ApplyResult{}, err
	}

	if result.Skipped {
		r.logger.Infow("cancellation skipped", "subject", subject, "event_id", eventID, "reason", result.Reason)
		return result, nil
	}

	r.invalidate(ctx, subject)
	r.logger.Infow("subscription canceled to default plan", "subject", subject, "event_id", eventID)
	return result, nil
}

// fromCache reports ok=false on a miss or cache failure. ok=true with a nil
// subscription means the subject is known to have no row.
func (r *SubscriptionRecord) fromCache(ctx context.Context, subject string) (*subscription.Subscription, bool) {
	if r.cache == nil {
		return nil, false
	}
	snap, err := r.cache.Get(ctx, subject)
	if err != nil {
		r.logger.Warnw("subscription cache read failed", "error", err, "subject", subject)
		return nil, false
	}
	if snap == nil {
		return nil, false
	}
	if snap.NotFound {
		return nil, true
	}

	status := vo.SubscriptionStatus(snap.Status)
	sub, err := subscription.ReconstructSubscription(snap.ID, subject, snap.PlanSlug, status,
		snap.ExternalRef, snap.CustomerRef, snap.PeriodStart, snap.PeriodEnd,
		vo.Quota{PeriodType: vo.PeriodType(snap.PeriodType), Limit: snap.Limit, BatchCeiling: snap.BatchCeiling},
		snap.LastEventID, snap.LastEventAt, snap.CreatedAt, snap.UpdatedAt)
	if err != nil || sub.Quota().Validate() != nil {
		r.logger.Warnw("discarding unreadable subscription cache entry", "subject", subject)
		r.invalidate(ctx, subject)
		return nil, false
	}
	return sub, true
}

// cacheFence reports ok=false when there is no cache or the fence is
// unreadable; the read then goes uncached.
func (r *SubscriptionRecord) cacheFence(ctx context.Context, subject string) (int64, bool) {
	if r.cache == nil {
		return 0, false
	}
	fence, err := r.cache.Fence(ctx, subject)
	if err != nil {
		r.logger.Warnw("subscription cache fence read failed", "error", err, "subject", subject)
		return 0, false
	}
	return fence, true
}

func (r *SubscriptionRecord) cacheSet(ctx context.Context, sub *subscription.Subscription, fence int64) {
	q := sub.Quota()
	snap := &cache.CachedSubscription{
		ID:           sub.ID(),
		PlanSlug:     sub.PlanSlug(),
		Status:       sub.Status().String(),
		PeriodType:   string(q.PeriodType),
		Limit:        q.Limit,
		BatchCeiling: q.BatchCeiling,
		ExternalRef:  sub.ExternalRef(),
		CustomerRef:  sub.CustomerRef(),
		PeriodStart:  sub.PeriodStart(),
		PeriodEnd:    sub.PeriodEnd(),
		LastEventID:  sub.LastEventID(),
		LastEventAt:  sub.LastEventAt(),
		CreatedAt:    sub.CreatedAt(),
		UpdatedAt:    sub.UpdatedAt(),
	}
	r.logCacheWrite(r.cache.Set(ctx, sub.Subject(), fence, snap), sub.Subject())
}

func (r *SubscriptionRecord) cacheNullMarker(ctx context.Context, subject string, fence int64) {
	r.logCacheWrite(r.cache.SetNullMarker(ctx, subject, fence), subject)
}

func (r *SubscriptionRecord) logCacheWrite(err error, subject string) {
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrFenceMoved):
		r.logger.Debugw("subscription changed during read, snapshot not cached", "subject", subject)
	default:
		r.logger.Warnw("subscription cache write failed", "error", err, "subject", subject)
	}
}

func (r *SubscriptionRecord) invalidate(ctx context.Context, subject string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, subject); err != nil {
		r.logger.Warnw("subscription cache invalidation failed", "error", err, "subject", subject)
	}
}
