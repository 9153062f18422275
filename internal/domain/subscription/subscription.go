package subscription

import (
	"fmt"
	"time"

	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
)

// SyncState is the subscription state a billing event asks for, with the
// target plan's quota already resolved.
type SyncState struct {
	PlanSlug    string
	Quota       vo.Quota
	Status      vo.SubscriptionStatus
	ExternalRef string
	CustomerRef string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	EventID     string
	OccurredAt  time.Time
}

// Subscription is a subject's current plan assignment. The quota snapshot is
// what gets enforced; it is copied from the plan on every sync and never
// re-read from the plan at request time.
type Subscription struct {
	id          uint
	subject     string
	planSlug    string
	status      vo.SubscriptionStatus
	externalRef string
	customerRef string
	periodStart *time.Time
	periodEnd   *time.Time
	quota       vo.Quota
	lastEventID string
	lastEventAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
	transient   bool
}

// NewTransientSubscription builds the implicit default-plan subscription of a
// subject that has never had a billing event. It is not persisted.
func NewTransientSubscription(subject string, defaultPlan *Plan) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		subject:   subject,
		planSlug:  defaultPlan.Slug(),
		status:    vo.StatusActive,
		quota:     defaultPlan.Quota(),
		createdAt: now,
		updatedAt: now,
		transient: true,
	}
}

// NewSubscription creates the first persisted subscription of a subject.
func NewSubscription(subject string, state SyncState) (*Subscription, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if err := validateState(state); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	s := &Subscription{
		subject:   subject,
		createdAt: now,
		updatedAt: now,
	}
	s.assign(state)
	return s, nil
}

func ReconstructSubscription(id uint, subject, planSlug string, status vo.SubscriptionStatus,
	externalRef, customerRef string, periodStart, periodEnd *time.Time, quota vo.Quota,
	lastEventID string, lastEventAt *time.Time, createdAt, updatedAt time.Time) (*Subscription, error) {
	if id == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", status)
	}
	return &Subscription{
		id:          id,
		subject:     subject,
		planSlug:    planSlug,
		status:      status,
		externalRef: externalRef,
		customerRef: customerRef,
		periodStart: periodStart,
		periodEnd:   periodEnd,
		quota:       quota,
		lastEventID: lastEventID,
		lastEventAt: lastEventAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (s *Subscription) ID() uint {
	return s.id
}

func (s *Subscription) Subject() string {
	return s.subject
}

func (s *Subscription) PlanSlug() string {
	return s.planSlug
}

func (s *Subscription) Status() vo.SubscriptionStatus {
	return s.status
}

func (s *Subscription) ExternalRef() string {
	return s.externalRef
}

func (s *Subscription) CustomerRef() string {
	return s.customerRef
}

func (s *Subscription) PeriodStart() *time.Time {
	return s.periodStart
}

func (s *Subscription) PeriodEnd() *time.Time {
	return s.periodEnd
}

func (s *Subscription) Quota() vo.Quota {
	return s.quota
}

func (s *Subscription) LastEventID() string {
	return s.lastEventID
}

func (s *Subscription) LastEventAt() *time.Time {
	return s.lastEventAt
}

func (s *Subscription) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Subscription) UpdatedAt() time.Time {
	return s.updatedAt
}

// TracksOther reports whether the row is bound to a provider subscription
// other than ref. An empty ref on either side matches anything.
func (s *Subscription) TracksOther(ref string) bool {
	return ref != "" && s.externalRef != "" && s.externalRef != ref
}

// IsTransient reports whether this is a synthesized default that has no row.
func (s *Subscription) IsTransient() bool {
	return s.transient
}

func (s *Subscription) SetID(id uint) {
	s.id = id
}

// Apply moves the subscription to state. It returns changed=false when the
// state is already in place, which makes redelivered events no-ops. Events
// older than the last applied one are rejected with ErrStaleEvent.
func (s *Subscription) Apply(state SyncState) (changed bool, err error) {
	if err := validateState(state); err != nil {
		return false, err
	}
	if s.lastEventAt != nil && !state.OccurredAt.IsZero() && state.OccurredAt.Before(*s.lastEventAt) {
		return false, ErrStaleEvent
	}
	if !s.status.CanTransitionTo(state.Status) {
		return false, ErrInvalidTransition(s.status.String(), state.Status.String())
	}

	changed = s.differsFrom(state)
	s.assign(state)
	s.updatedAt = time.Now().UTC()
	return changed, nil
}

// CancelToDefault moves the subject back to the default plan with the plan's
// current quota. The external reference is kept for audit.
func (s *Subscription) CancelToDefault(defaultPlan *Plan, eventID string, at time.Time) bool {
	changed := s.status != vo.StatusCanceled ||
		s.planSlug != defaultPlan.Slug() ||
		s.quota != defaultPlan.Quota()

	s.planSlug = defaultPlan.Slug()
	s.status = vo.StatusCanceled
	s.quota = defaultPlan.Quota()
	if eventID != "" {
		s.lastEventID = eventID
	}
	if !at.IsZero() {
		t := at.UTC()
		s.lastEventAt = &t
	}
	s.updatedAt = time.Now().UTC()
	return changed
}

func (s *Subscription) differsFrom(state SyncState) bool {
	return s.planSlug != state.PlanSlug ||
		s.status != state.Status ||
		s.quota != state.Quota ||
		(state.ExternalRef != "" && s.externalRef != state.ExternalRef) ||
		(state.CustomerRef != "" && s.customerRef != state.CustomerRef) ||
		!sameTime(s.periodStart, state.PeriodStart) ||
		!sameTime(s.periodEnd, state.PeriodEnd)
}

func (s *Subscription) assign(state SyncState) {
	s.planSlug = state.PlanSlug
	s.status = state.Status
	s.quota = state.Quota
	if state.ExternalRef != "" {
		s.externalRef = state.ExternalRef
	}
	if state.CustomerRef != "" {
		s.customerRef = state.CustomerRef
	}
	if state.PeriodStart != nil {
		s.periodStart = utcPtr(state.PeriodStart)
	}
	if state.PeriodEnd != nil {
		s.periodEnd = utcPtr(state.PeriodEnd)
	}
	if state.EventID != "" {
		s.lastEventID = state.EventID
	}
	if !state.OccurredAt.IsZero() {
		s.lastEventAt = utcPtr(&state.OccurredAt)
	}
}

func validateState(state SyncState) error {
	if state.PlanSlug == "" {
		return fmt.Errorf("%w: plan slug is required", ErrInvalidPlan)
	}
	if !state.Status.IsValid() {
		return fmt.Errorf("invalid subscription status: %s", state.Status)
	}
	return state.Quota.Validate()
}

// sameTime treats a nil incoming period as "unchanged".
func sameTime(current, incoming *time.Time) bool {
	if incoming == nil {
		return true
	}
	return current != nil && current.Equal(*incoming)
}

func utcPtr(t *time.Time) *time.Time {
	u := t.UTC()
	return &u
}
