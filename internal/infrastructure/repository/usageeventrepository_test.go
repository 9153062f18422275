package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/domain/usage"
)

func TestUsageEventAppendAndList(t *testing.T) {
	repo := NewUsageEventRepository(setupTestDB(t), testLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, &usage.Event{
		Subject: "user-1", Action: "resize", PlanSlug: "free", PeriodKey: "lifetime",
		Metadata: map[string]any{"width": float64(640), "crop": map[string]any{"ratios": []any{1.5, float64(2)}}},
		CreatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.Append(ctx, &usage.Event{
		Subject: "user-1", Action: "crop", PlanSlug: "free", PeriodKey: "lifetime", CreatedAt: now,
	}))
	require.NoError(t, repo.Append(ctx, &usage.Event{
		Subject: "user-2", Action: "resize", PlanSlug: "pro", PeriodKey: "2026-10-17",
	}))

	events, err := repo.ListBySubject(ctx, "user-1", now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "crop", events[0].Action, "newest first")
	assert.Equal(t, "resize", events[1].Action)
	assert.Equal(t, float64(640), events[1].Metadata["width"])
	assert.Equal(t, map[string]any{"ratios": []any{1.5, float64(2)}}, events[1].Metadata["crop"])
	assert.Nil(t, events[0].Metadata)
	assert.NotEmpty(t, events[1].ID)
}

func TestUsageEventDeleteBefore(t *testing.T) {
	repo := NewUsageEventRepository(setupTestDB(t), testLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	for _, age := range []time.Duration{100 * 24 * time.Hour, 91 * 24 * time.Hour, time.Hour} {
		require.NoError(t, repo.Append(ctx, &usage.Event{
			Subject: "user-1", Action: "resize", PlanSlug: "free", PeriodKey: "lifetime", CreatedAt: now.Add(-age),
		}))
	}

	n, err := repo.DeleteBefore(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	events, err := repo.ListBySubject(ctx, "user-1", time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
