package usecases

import (
	"context"
	"slices"
	"time"

	"github.com/repolens/gatekeeper/internal/application/gateway/dto"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type TrackUsageCommand struct {
	Subject   string
	Action    string
	BatchSize int
	Metadata  map[string]any
}

// TrackUsageUseCase authorizes one action against the subject's quota and
// records it.
type TrackUsageUseCase struct {
	subs           SubscriptionReader
	counter        UsageCounter
	events         usage.EventRepository
	meteredActions []string
	readTimeout    time.Duration
	logger         logger.Interface
}

func NewTrackUsageUseCase(
	subs SubscriptionReader,
	counter UsageCounter,
	events usage.EventRepository,
	meteredActions []string,
	readTimeout time.Duration,
	logger logger.Interface,
) *TrackUsageUseCase {
	return &TrackUsageUseCase{
		subs:           subs,
		counter:        counter,
		events:         events,
		meteredActions: meteredActions,
		readTimeout:    readTimeout,
		logger:         logger,
	}
}

// Execute returns *usage.QuotaExceededError when the action does not fit.
func (uc *TrackUsageUseCase) Execute(ctx context.Context, cmd TrackUsageCommand) (*dto.TrackUsageDTO, error) {
	readCtx, cancel := withReadTimeout(ctx, uc.readTimeout)
	sub, err := uc.subs.Get(readCtx, cmd.Subject)
	err = transient(readCtx, err)
	cancel()
	if err != nil {
		return nil, err
	}

	quota := sub.Quota()
	if quota.BatchCeiling > 0 && cmd.BatchSize > quota.BatchCeiling {
		return nil, apperrors.NewValidationError("Batch size exceeds plan ceiling")
	}

	periodKey := uc.counter.PeriodKey(quota, biztime.NowUTC())
	result := &dto.TrackUsageDTO{Success: true, Remaining: vo.Unlimited}

	if slices.Contains(uc.meteredActions, cmd.Action) {
		decision, err := uc.reserve(ctx, cmd, periodKey, quota)
		if err != nil {
			return nil, err
		}
		result.Used = decision.Used
		result.Remaining = decision.Remaining
	}

	uc.record(ctx, cmd, sub.PlanSlug(), periodKey)
	return result, nil
}

// reserve pre-checks with CheckAndReserve, which also shapes the denial, and
// then takes the slot with a conditional increment that cannot overshoot.
func (uc *TrackUsageUseCase) reserve(ctx context.Context, cmd TrackUsageCommand, periodKey string, quota vo.Quota) (usage.Decision, error) {
	decision, err := uc.counter.CheckAndReserve(ctx, cmd.Subject, cmd.Action, periodKey, quota)
	if err != nil {
		return usage.Decision{}, err
	}
	if !decision.Allowed {
		return usage.Decision{}, uc.denied(cmd, periodKey, decision)
	}

	if quota.IsUnlimited() {
		used, err := uc.counter.Increment(ctx, cmd.Subject, cmd.Action, periodKey)
		if err != nil {
			return usage.Decision{}, err
		}
		decision.Used = used
		return decision, nil
	}

	decision, err = uc.counter.ReserveIfBelow(ctx, cmd.Subject, cmd.Action, periodKey, int64(quota.Limit))
	if err != nil {
		return usage.Decision{}, err
	}
	if !decision.Allowed {
		return usage.Decision{}, uc.denied(cmd, periodKey, decision)
	}
	return decision, nil
}

func (uc *TrackUsageUseCase) denied(cmd TrackUsageCommand, periodKey string, d usage.Decision) error {
	uc.logger.Infow("usage limit reached",
		"subject", cmd.Subject,
		"action", cmd.Action,
		"period", periodKey,
		"used", d.Used,
		"limit", d.Limit,
	)
	return &usage.QuotaExceededError{Action: cmd.Action, Decision: d}
}

// record appends the usage event. The slot is already taken, so a failed
// append is logged rather than failing the request.
func (uc *TrackUsageUseCase) record(ctx context.Context, cmd TrackUsageCommand, planSlug, periodKey string) {
	ev := &usage.Event{
		Subject:   cmd.Subject,
		Action:    cmd.Action,
		PlanSlug:  planSlug,
		PeriodKey: periodKey,
		Metadata:  cmd.Metadata,
		CreatedAt: biztime.NowUTC(),
	}
	if err := uc.events.Append(ctx, ev); err != nil {
		uc.logger.Errorw("failed to append usage event", "error", err, "subject", cmd.Subject, "action", cmd.Action)
	}
}
