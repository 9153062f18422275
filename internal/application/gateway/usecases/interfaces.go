package usecases

import (
	"context"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	infraauth "github.com/repolens/gatekeeper/internal/infrastructure/auth"
)

type TokenStore interface {
	Issue(ctx context.Context, subject string) (string, time.Time, error)
	Validate(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type SessionVerifier interface {
	Verify(raw string) (*infraauth.SessionIdentity, error)
}

type SubscriptionReader interface {
	Get(ctx context.Context, subject string) (*subscription.Subscription, error)
}

type PlanReader interface {
	GetPlan(ctx context.Context, slug string) (*subscription.Plan, error)
}

type UsageCounter interface {
	PeriodKey(quota vo.Quota, now time.Time) string
	Increment(ctx context.Context, subject, action, periodKey string) (int64, error)
	Peek(ctx context.Context, subject, action, periodKey string) (int64, error)
	CheckAndReserve(ctx context.Context, subject, action, periodKey string, quota vo.Quota) (usage.Decision, error)
	ReserveIfBelow(ctx context.Context, subject, action, periodKey string, limit int64) (usage.Decision, error)
}

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
