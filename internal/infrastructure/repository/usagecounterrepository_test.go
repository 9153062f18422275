package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/domain/usage"
)

func TestUsageCounterIncrement(t *testing.T) {
	repo := NewUsageCounterRepository(setupTestDB(t), testLogger())
	ctx := context.Background()
	key := usage.CounterKey{Subject: "u1", Action: "resize", PeriodKey: "2026-03-01"}

	count, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Increment(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other := key
	other.PeriodKey = "2026-03-02"
	got, err := repo.Increment(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "a new period starts from zero")
}

func TestUsageCounterConcurrentIncrementsAreNotLost(t *testing.T) {
	gdb := setupConcurrentTestDB(t)
	repo := NewUsageCounterRepository(gdb, testLogger())
	ctx := context.Background()
	key := usage.CounterKey{Subject: "u1", Action: "resize", PeriodKey: "lifetime"}

	const n = 25
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := repo.Increment(ctx, key)
			if err != nil {
				errs <- err
				return
			}
			results <- got
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	close(results)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every caller saw its own increment: the returned counts are 1..n.
	seen := make(map[int64]bool, n)
	for got := range results {
		assert.False(t, seen[got], "count %d returned twice", got)
		seen[got] = true
	}
	assert.Len(t, seen, n)

	count, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	assert.Equal(t, concurrentConns, sqlDB.Stats().MaxOpenConnections)
}

func TestUsageCounterIncrementIfBelowStopsAtLimit(t *testing.T) {
	repo := NewUsageCounterRepository(setupConcurrentTestDB(t), testLogger())
	ctx := context.Background()
	key := usage.CounterKey{Subject: "u1", Action: "resize", PeriodKey: "2026-03-01"}

	const limit = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	start := make(chan struct{})
	granted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, _, err := repo.IncrementIfBelow(ctx, key, limit)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, limit, granted)
	count, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)

	ok, count, err := repo.IncrementIfBelow(ctx, key, limit)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(limit), count)
}

func TestUsageCounterRejectsIncompleteKey(t *testing.T) {
	repo := NewUsageCounterRepository(setupTestDB(t), testLogger())
	_, err := repo.Increment(context.Background(), usage.CounterKey{Subject: "u1"})
	assert.Error(t, err)
}
