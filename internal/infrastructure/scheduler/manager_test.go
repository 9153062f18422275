package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type countingPruner struct {
	cutoff time.Time
	calls  atomic.Int32
}

func (p *countingPruner) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	p.calls.Add(1)
	return 3, nil
}

func TestSchedulerRunsReconcileImmediately(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	job := BatchJobFunc(func(ctx context.Context) (int, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 1, nil
	})
	require.NoError(t, m.RegisterReconcileJob(job, time.Hour, time.Minute))
	require.NoError(t, m.RegisterUsageRetentionJob(&countingPruner{}, 90))
	assert.Len(t, m.Jobs(), 2)

	m.Start()
	assert.True(t, m.IsStarted())

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile job did not start immediately")
	}

	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
}

func TestPruneUsageEventsUsesRetentionWindow(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)

	p := &countingPruner{}
	before := time.Now().UTC()
	m.pruneUsageEvents(context.Background(), p, 30)

	assert.Equal(t, int32(1), p.calls.Load())
	assert.WithinDuration(t, before.AddDate(0, 0, -30), p.cutoff, time.Minute)
}
