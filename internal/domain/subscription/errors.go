package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrStaleEvent              = errors.New("billing event older than current state")
	ErrSupersededSubscription  = errors.New("billing event for a subscription the subject no longer holds")
	ErrPlanNotFound            = errors.New("plan not found")
	ErrPlanSlugExists          = errors.New("plan slug already exists")
	ErrInvalidPlan             = errors.New("invalid plan")

	// ErrConfigurationDefect means required seed data, such as the default
	// plan, is missing. It is never papered over with in-code limits.
	ErrConfigurationDefect = errors.New("configuration defect")

	// ErrSubjectUnresolvable means a billing customer has no local user.
	ErrSubjectUnresolvable = errors.New("billing customer has no matching subject")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}
