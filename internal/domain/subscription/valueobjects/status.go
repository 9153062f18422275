package valueobjects

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	return s == StatusActive || s == StatusPastDue || s == StatusCanceled
}

var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusActive:   {StatusPastDue, StatusCanceled},
	StatusPastDue:  {StatusActive, StatusCanceled},
	StatusCanceled: {StatusActive},
}

// CanTransitionTo reports whether a billing event may move s to target.
// Staying in the same state is always allowed so redelivered events apply cleanly.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	if s == target {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
