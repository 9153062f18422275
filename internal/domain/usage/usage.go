// Package usage models per-subject action counters and the append-only
// usage event log.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CounterKey identifies one counting window.
type CounterKey struct {
	Subject   string
	Action    string
	PeriodKey string
}

func (k CounterKey) Validate() error {
	if k.Subject == "" || k.Action == "" || k.PeriodKey == "" {
		return fmt.Errorf("incomplete counter key %+v", k)
	}
	return nil
}

// Decision is the outcome of a quota check. Limit and Remaining are -1 for
// unlimited quotas.
type Decision struct {
	Allowed   bool
	Limit     int64
	Used      int64
	Remaining int64
}

// Event is one row of the append-only usage log.
type Event struct {
	ID        string
	Subject   string
	Action    string
	PlanSlug  string
	PeriodKey string
	Metadata  map[string]any
	CreatedAt time.Time
}

// QuotaExceededError is the normal "deny" outcome of a metered action.
type QuotaExceededError struct {
	Action   string
	Decision Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("usage limit exceeded for %s: used %d of %d", e.Action, e.Decision.Used, e.Decision.Limit)
}

var ErrQuotaExceeded = errors.New("usage limit exceeded")

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

type CounterRepository interface {
	// Increment atomically adds one and returns the new count, creating the
	// row on first use.
	Increment(ctx context.Context, key CounterKey) (int64, error)
	// IncrementIfBelow atomically adds one only while count < limit. It
	// returns whether the increment happened and the count afterwards.
	IncrementIfBelow(ctx context.Context, key CounterKey, limit int64) (bool, int64, error)
	// Get returns 0 when the row does not exist.
	Get(ctx context.Context, key CounterKey) (int64, error)
}

type EventRepository interface {
	Append(ctx context.Context, event *Event) error
	ListBySubject(ctx context.Context, subject string, since time.Time, limit int) ([]*Event, error)
	// DeleteBefore prunes the audit trail. Counters are unaffected.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
