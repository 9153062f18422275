// Package billing holds the provider-neutral shape of inbound billing events.
package billing

import (
	"errors"
	"time"
)

type EventKind string

const (
	KindSubscriptionCreated EventKind = "subscription_created"
	KindSubscriptionUpdated EventKind = "subscription_updated"
	KindSubscriptionDeleted EventKind = "subscription_deleted"
	KindPaymentSucceeded    EventKind = "payment_succeeded"
	KindPaymentFailed       EventKind = "payment_failed"
	KindIgnored             EventKind = "ignored"
)

var (
	ErrSignatureInvalid = errors.New("billing event signature invalid")
	ErrMalformedEvent   = errors.New("billing event payload malformed")
	// ErrUnmappedPrice means a subscription references a price with no plan.
	ErrUnmappedPrice = errors.New("billing price has no plan mapping")
)

// ProviderStatus is the billing provider's own subscription status string.
type ProviderStatus string

// Event is a verified billing event translated out of the provider payload.
type Event struct {
	ID          string
	Type        string
	Kind        EventKind
	CustomerRef string
	// SubscriptionRef is the provider's subscription ID.
	SubscriptionRef string
	PriceRef        string
	PlanHint        string
	Status          ProviderStatus
	PeriodStart     *time.Time
	PeriodEnd       *time.Time
	OccurredAt      time.Time
}
