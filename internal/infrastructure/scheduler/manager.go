// Package scheduler runs the worker's periodic jobs on gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/repolens/gatekeeper/internal/shared/biztime"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// BatchJob processes one batch and returns how many items it handled.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// UsageEventPruner deletes usage events created before cutoff.
type UsageEventPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SchedulerManager owns one gocron scheduler for every worker job.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a scheduler whose cron expressions use the
// business timezone.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterReconcileJob replays billing events every interval, starting now.
// A pass still running when the next is due pushes the next one back.
func (m *SchedulerManager) RegisterReconcileJob(job BatchJob, interval, timeout time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			m.runBatch(ctx, "billing reconcile", job)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "reconcile"),
		gocron.WithName("billing-reconcile"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered reconcile job", "interval", interval)
	return nil
}

// RegisterUsageRetentionJob prunes usage events older than retentionDays at
// 05:00 business time.
func (m *SchedulerManager) RegisterUsageRetentionJob(pruner UsageEventPruner, retentionDays int) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob("0 5 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.pruneUsageEvents(ctx, pruner, retentionDays)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("usage", "cleanup"),
		gocron.WithName("usage-event-retention"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered usage retention job", "at", "05:00", "retention_days", retentionDays)
	return nil
}

func (m *SchedulerManager) runBatch(ctx context.Context, name string, job BatchJob) {
	startTime := biztime.NowUTC()

	n, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("scheduled job failed",
			"job", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	m.logger.Infow("scheduled job completed",
		"job", name,
		"count", n,
		"duration", time.Since(startTime),
	)
}

func (m *SchedulerManager) pruneUsageEvents(ctx context.Context, pruner UsageEventPruner, retentionDays int) {
	cutoff := biztime.NowUTC().AddDate(0, 0, -retentionDays)
	startTime := biztime.NowUTC()

	n, err := pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		m.logger.Errorw("usage event cleanup failed",
			"error", err,
			"duration", time.Since(startTime),
			"retention_days", retentionDays,
		)
		return
	}

	m.logger.Infow("usage event cleanup completed",
		"deleted", n,
		"cutoff", cutoff,
		"duration", time.Since(startTime),
	)
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to finish.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
