// Package biztime holds the business timezone used to cut daily usage periods.
// Timestamps are stored in UTC; the business timezone only decides where one
// day ends and the next begins.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultTimezone = "UTC"

	// DayKeyLayout formats daily period keys.
	DayKeyLayout = "2006-01-02"
)

var (
	mu          sync.RWMutex
	bizLocation = time.UTC
	nowFunc     = time.Now
)

// Init sets the business timezone. An empty tz selects UTC.
func Init(tz string) error {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("load business timezone %q: %w", tz, err)
	}
	mu.Lock()
	bizLocation = loc
	mu.Unlock()
	return nil
}

func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return bizLocation
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	mu.RLock()
	f := nowFunc
	mu.RUnlock()
	return f().UTC()
}

// SetNowFunc overrides the clock and returns a function restoring the previous one.
func SetNowFunc(f func() time.Time) (restore func()) {
	mu.Lock()
	prev := nowFunc
	nowFunc = f
	mu.Unlock()
	return func() {
		mu.Lock()
		nowFunc = prev
		mu.Unlock()
	}
}

// DayKey returns the calendar date of t in the business timezone.
func DayKey(t time.Time) string {
	return t.In(Location()).Format(DayKeyLayout)
}

// StartOfDayUTC returns 00:00 of t's business day, expressed in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	loc := Location()
	b := t.In(loc)
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, loc).UTC()
}

// StartOfNextDayUTC is when the current daily period resets.
func StartOfNextDayUTC(t time.Time) time.Time {
	loc := Location()
	b := t.In(loc)
	return time.Date(b.Year(), b.Month(), b.Day()+1, 0, 0, 0, 0, loc).UTC()
}
