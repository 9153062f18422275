package valueobjects

import (
	"errors"
	"fmt"
	"time"
)

// Unlimited is the Limit value meaning "no cap".
const Unlimited = -1

// LifetimePeriodKey is the period key shared by every one-time quota.
const LifetimePeriodKey = "lifetime"

type PeriodType string

const (
	PeriodOneTime PeriodType = "one_time"
	PeriodDaily   PeriodType = "daily"
)

func (p PeriodType) IsValid() bool {
	return p == PeriodOneTime || p == PeriodDaily
}

var ErrInvalidQuota = errors.New("invalid quota")

// Quota is the usage allowance of a plan. Limit is either Unlimited or a
// non-negative count per period; callers go through the methods below so the
// sentinel never takes part in arithmetic.
type Quota struct {
	PeriodType   PeriodType `json:"periodType"`
	Limit        int        `json:"limit"`
	BatchCeiling int        `json:"batchCeiling"`
}

func NewQuota(periodType PeriodType, limit, batchCeiling int) (Quota, error) {
	q := Quota{PeriodType: periodType, Limit: limit, BatchCeiling: batchCeiling}
	if err := q.Validate(); err != nil {
		return Quota{}, err
	}
	return q, nil
}

func (q Quota) Validate() error {
	if !q.PeriodType.IsValid() {
		return fmt.Errorf("%w: period type %q", ErrInvalidQuota, q.PeriodType)
	}
	if q.Limit < Unlimited {
		return fmt.Errorf("%w: limit %d", ErrInvalidQuota, q.Limit)
	}
	if q.BatchCeiling < 0 {
		return fmt.Errorf("%w: batch ceiling %d", ErrInvalidQuota, q.BatchCeiling)
	}
	return nil
}

func (q Quota) IsUnlimited() bool {
	return q.Limit == Unlimited
}

// Allows reports whether one more use fits after used.
func (q Quota) Allows(used int64) bool {
	return q.IsUnlimited() || used < int64(q.Limit)
}

// Remaining returns Unlimited for unlimited quotas and never goes below zero.
func (q Quota) Remaining(used int64) int64 {
	if q.IsUnlimited() {
		return Unlimited
	}
	if r := int64(q.Limit) - used; r > 0 {
		return r
	}
	return 0
}

// PeriodKey returns the counting window containing now. dayKey formats a day
// in the business timezone.
func (q Quota) PeriodKey(now time.Time, dayKey func(time.Time) string) string {
	if q.PeriodType == PeriodDaily {
		return dayKey(now)
	}
	return LifetimePeriodKey
}
