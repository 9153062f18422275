package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
)

func mustPlan(t *testing.T, slug string, limit int) *Plan {
	t.Helper()
	q, err := vo.NewQuota(vo.PeriodDaily, limit, 1)
	require.NoError(t, err)
	p, err := NewPlan(slug, slug, q, vo.NewFeatures())
	require.NoError(t, err)
	return p
}

func proState(occurred time.Time) SyncState {
	start := occurred.Add(-time.Hour)
	end := start.AddDate(0, 1, 0)
	return SyncState{
		PlanSlug:    "pro",
		Quota:       vo.Quota{PeriodType: vo.PeriodDaily, Limit: vo.Unlimited, BatchCeiling: 50},
		Status:      vo.StatusActive,
		ExternalRef: "sub_123",
		CustomerRef: "cus_123",
		PeriodStart: &start,
		PeriodEnd:   &end,
		EventID:     "evt_1",
		OccurredAt:  occurred,
	}
}

func TestTransientSubscriptionUsesDefaultPlan(t *testing.T) {
	free := mustPlan(t, "free", 3)

	sub := NewTransientSubscription("u1", free)

	assert.True(t, sub.IsTransient())
	assert.Equal(t, "free", sub.PlanSlug())
	assert.Equal(t, free.Quota(), sub.Quota())
	assert.Equal(t, vo.StatusActive, sub.Status())
}

func TestApplySameStateIsNoop(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub, err := NewSubscription("u1", proState(now))
	require.NoError(t, err)

	changed, err := sub.Apply(proState(now))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "pro", sub.PlanSlug())
}

func TestApplyRejectsStaleEvents(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub, err := NewSubscription("u1", proState(now))
	require.NoError(t, err)

	older := proState(now.Add(-time.Minute))
	older.Status = vo.StatusPastDue
	_, err = sub.Apply(older)

	assert.ErrorIs(t, err, ErrStaleEvent)
	assert.Equal(t, vo.StatusActive, sub.Status())
}

func TestApplyStatusMachine(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub, err := NewSubscription("u1", proState(now))
	require.NoError(t, err)

	pastDue := proState(now.Add(time.Minute))
	pastDue.Status = vo.StatusPastDue
	changed, err := sub.Apply(pastDue)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, vo.StatusPastDue, sub.Status())

	recovered := proState(now.Add(2 * time.Minute))
	changed, err = sub.Apply(recovered)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, vo.StatusActive, sub.Status())
}

func TestCancelToDefault(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sub, err := NewSubscription("u1", proState(now))
	require.NoError(t, err)
	free := mustPlan(t, "free", 3)

	assert.True(t, sub.CancelToDefault(free, "evt_2", now.Add(time.Hour)))
	assert.Equal(t, "free", sub.PlanSlug())
	assert.Equal(t, vo.StatusCanceled, sub.Status())
	assert.Equal(t, 3, sub.Quota().Limit)
	assert.Equal(t, "sub_123", sub.ExternalRef())

	assert.False(t, sub.CancelToDefault(free, "evt_2", now.Add(time.Hour)))

	_, err = sub.Apply(SyncState{
		PlanSlug: "pro", Quota: proState(now).Quota, Status: vo.StatusPastDue,
		OccurredAt: now.Add(2 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestPlanDefaultCannotBeDeactivated(t *testing.T) {
	free := mustPlan(t, "free", 3)
	assert.ErrorIs(t, free.SetActive(false), ErrInvalidPlan)

	pro := mustPlan(t, "pro", vo.Unlimited)
	assert.NoError(t, pro.SetActive(false))
	assert.False(t, pro.IsActive())
}

func TestPlanChangeQuotaValidates(t *testing.T) {
	free := mustPlan(t, "free", 2)
	assert.ErrorIs(t, free.ChangeQuota(vo.Quota{PeriodType: vo.PeriodDaily, Limit: -5}), vo.ErrInvalidQuota)

	require.NoError(t, free.ChangeQuota(vo.Quota{PeriodType: vo.PeriodDaily, Limit: 3}))
	assert.Equal(t, 3, free.Quota().Limit)
}
