package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/repolens/gatekeeper/internal/application/gateway/dto"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/user"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type GetUserInfoUseCase struct {
	users          user.Repository
	subs           SubscriptionReader
	plans          PlanReader
	counter        UsageCounter
	meteredActions []string
	readTimeout    time.Duration
	logger         logger.Interface
}

func NewGetUserInfoUseCase(
	users user.Repository,
	subs SubscriptionReader,
	plans PlanReader,
	counter UsageCounter,
	meteredActions []string,
	readTimeout time.Duration,
	logger logger.Interface,
) *GetUserInfoUseCase {
	return &GetUserInfoUseCase{
		users:          users,
		subs:           subs,
		plans:          plans,
		counter:        counter,
		meteredActions: meteredActions,
		readTimeout:    readTimeout,
		logger:         logger,
	}
}

func (uc *GetUserInfoUseCase) Execute(ctx context.Context, subject string) (*dto.UserInfoDTO, error) {
	ctx, cancel := withReadTimeout(ctx, uc.readTimeout)
	defer cancel()

	u, err := uc.users.GetBySubject(ctx, subject)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, apperrors.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, transient(ctx, err)
	}

	sub, err := uc.subs.Get(ctx, subject)
	if err != nil {
		return nil, transient(ctx, err)
	}

	// Features come from the plan row; limits come from the snapshot.
	var features vo.Features
	if plan, err := uc.plans.GetPlan(ctx, sub.PlanSlug()); err == nil {
		features = plan.Features()
	} else if !errors.Is(err, subscription.ErrPlanNotFound) {
		return nil, transient(ctx, err)
	}

	quota := sub.Quota()
	periodKey := uc.counter.PeriodKey(quota, biztime.NowUTC())
	usage := make(map[string]dto.UsageDTO, len(uc.meteredActions))
	for _, action := range uc.meteredActions {
		used, err := uc.counter.Peek(ctx, subject, action, periodKey)
		if err != nil {
			return nil, transient(ctx, err)
		}
		usage[action] = dto.UsageDTO{
			Used:      used,
			Remaining: quota.Remaining(used),
			PeriodKey: periodKey,
		}
	}

	return &dto.UserInfoDTO{
		User:         dto.ToUserDTO(u),
		Subscription: dto.ToSubscriptionDTO(sub, features, usage),
	}, nil
}
