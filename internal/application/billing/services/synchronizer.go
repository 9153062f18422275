// Package services keeps subscriptions in step with the billing provider.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	subservices "github.com/repolens/gatekeeper/internal/application/subscription/services"
	"github.com/repolens/gatekeeper/internal/domain/billing"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// EventVerifier authenticates and decodes a provider webhook.
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (*billing.Event, error)
}

// SubscriptionSyncer is the write side of the subscription record.
type SubscriptionSyncer interface {
	ApplyBillingEvent(ctx context.Context, cmd subservices.SyncCommand) (subservices.ApplyResult, error)
	CancelByCustomer(ctx context.Context, customerRef, externalRef, eventID string, at time.Time) (subservices.ApplyResult, error)
}

// Synchronizer routes verified billing events to subscription mutations.
// Every route is safe to re-run: the provider delivers at least once.
type Synchronizer struct {
	verifier EventVerifier
	record   SubscriptionSyncer
	resolver *PlanResolver
	timeout  time.Duration
	logger   logger.Interface
}

func NewSynchronizer(
	verifier EventVerifier,
	record SubscriptionSyncer,
	resolver *PlanResolver,
	timeout time.Duration,
	logger logger.Interface,
) *Synchronizer {
	return &Synchronizer{
		verifier: verifier,
		record:   record,
		resolver: resolver,
		timeout:  timeout,
		logger:   logger,
	}
}

// Verify returns billing.ErrSignatureInvalid or billing.ErrMalformedEvent for
// payloads the provider should not redeliver.
func (s *Synchronizer) Verify(payload []byte, signatureHeader string) (*billing.Event, error) {
	ev, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		s.logger.Warnw("billing webhook rejected", "error", err)
		return nil, err
	}
	return ev, nil
}

// Process applies ev. A nil return acknowledges the event, including events
// that were skipped because their customer has no local user.
func (s *Synchronizer) Process(ctx context.Context, ev *billing.Event) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := s.logger.With("event_id", ev.ID, "event_type", ev.Type, "customer_ref", ev.CustomerRef)

	var (
		result subservices.ApplyResult
		err    error
	)
	switch ev.Kind {
	case billing.KindSubscriptionCreated, billing.KindSubscriptionUpdated:
		result, err = s.syncSubscription(ctx, ev, log)
	case billing.KindSubscriptionDeleted:
		result, err = s.record.CancelByCustomer(ctx, ev.CustomerRef, ev.SubscriptionRef, ev.ID, ev.OccurredAt)
	case billing.KindPaymentSucceeded:
		result, err = s.apply(ctx, ev, "", vo.StatusActive)
	case billing.KindPaymentFailed:
		result, err = s.apply(ctx, ev, "", vo.StatusPastDue)
	default:
		log.Debugw("billing event ignored")
		return nil
	}
	if err != nil {
		log.Errorw("billing event processing failed", "error", err)
		return err
	}

	log.Infow("billing event processed", "subject", result.Subject, "changed", result.Changed, "skipped", result.Skipped)
	return nil
}

func (s *Synchronizer) syncSubscription(ctx context.Context, ev *billing.Event, log logger.Interface) (subservices.ApplyResult, error) {
	status, ok := MapStatus(ev.Status)
	if !ok {
		log.Warnw("unhandled provider subscription status", "status", ev.Status)
		return subservices.ApplyResult{Skipped: true, Reason: "unhandled status"}, nil
	}
	if status == vo.StatusCanceled {
		return s.record.CancelByCustomer(ctx, ev.CustomerRef, ev.SubscriptionRef, ev.ID, ev.OccurredAt)
	}

	slug, err := s.resolver.Resolve(ctx, ev)
	if err != nil {
		return subservices.ApplyResult{}, fmt.Errorf("resolve plan: %w", err)
	}
	return s.apply(ctx, ev, slug, status)
}

func (s *Synchronizer) apply(ctx context.Context, ev *billing.Event, planSlug string, status vo.SubscriptionStatus) (subservices.ApplyResult, error) {
	return s.record.ApplyBillingEvent(ctx, subservices.SyncCommand{
		CustomerRef: ev.CustomerRef,
		PlanSlug:    planSlug,
		Status:      status,
		ExternalRef: ev.SubscriptionRef,
		PeriodStart: ev.PeriodStart,
		PeriodEnd:   ev.PeriodEnd,
		EventID:     ev.ID,
		OccurredAt:  ev.OccurredAt,
	})
}

// MapStatus folds the provider's subscription statuses onto ours.
func MapStatus(s billing.ProviderStatus) (vo.SubscriptionStatus, bool) {
	switch s {
	case "active", "trialing":
		return vo.StatusActive, true
	case "past_due", "unpaid", "incomplete":
		return vo.StatusPastDue, true
	case "canceled", "incomplete_expired":
		return vo.StatusCanceled, true
	default:
		return "", false
	}
}

// IsClientError reports whether err means the payload itself is bad, so
// redelivery cannot help.
func IsClientError(err error) bool {
	return errors.Is(err, billing.ErrSignatureInvalid) || errors.Is(err, billing.ErrMalformedEvent)
}
