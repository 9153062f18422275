package usecases

import (
	"context"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/billing"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type ReconcileResult struct {
	Seen   int
	Failed int
}

// ReconcileUseCase replays recent provider events through the synchronizer
// to heal missed webhooks. Processing is idempotent, so events that were
// already delivered change nothing.
type ReconcileUseCase struct {
	provider  Provider
	processor EventProcessor
	lookback  time.Duration
	logger    logger.Interface
}

func NewReconcileUseCase(provider Provider, processor EventProcessor, lookback time.Duration, logger logger.Interface) *ReconcileUseCase {
	return &ReconcileUseCase{
		provider:  provider,
		processor: processor,
		lookback:  lookback,
		logger:    logger,
	}
}

func (uc *ReconcileUseCase) Execute(ctx context.Context) (ReconcileResult, error) {
	since := biztime.NowUTC().Add(-uc.lookback)
	var res ReconcileResult

	err := uc.provider.ListEvents(ctx, since, func(ev *billing.Event) error {
		res.Seen++
		if err := uc.processor.Process(ctx, ev); err != nil {
			// Keep going; the next run retries this one.
			res.Failed++
			uc.logger.Warnw("reconcile event failed", "error", err, "event_id", ev.ID)
		}
		return ctx.Err()
	})
	if err != nil {
		uc.logger.Errorw("reconcile aborted", "error", err, "seen", res.Seen)
		return res, err
	}

	uc.logger.Infow("reconcile finished", "since", since, "seen", res.Seen, "failed", res.Failed)
	return res, nil
}
