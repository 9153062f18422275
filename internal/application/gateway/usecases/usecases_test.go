package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "github.com/repolens/gatekeeper/internal/application/auth"
	subservices "github.com/repolens/gatekeeper/internal/application/subscription/services"
	"github.com/repolens/gatekeeper/internal/application/testutil"
	usageservices "github.com/repolens/gatekeeper/internal/application/usage/services"
	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	infraauth "github.com/repolens/gatekeeper/internal/infrastructure/auth"
	"github.com/repolens/gatekeeper/internal/infrastructure/token"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
)

const sessionSecret = "session-secret"

type gateway struct {
	plans    *testutil.MockPlanRepository
	subs     *testutil.MockSubscriptionRepository
	users    *testutil.MockUserRepository
	tokens   *testutil.MockAccessTokenRepository
	counters *testutil.MockCounterRepository
	events   *testutil.MockEventRepository

	store   *authapp.TokenStore
	record  *subservices.SubscriptionRecord
	counter *usageservices.Counter

	exchange *ExchangeSessionUseCase
	authn    *AuthenticateUseCase
	info     *GetUserInfoUseCase
	track    *TrackUsageUseCase
	logout   *LogoutUseCase
}

func mustPlan(t *testing.T, slug string, period vo.PeriodType, limit int, features ...string) *subscription.Plan {
	t.Helper()
	q, err := vo.NewQuota(period, limit, 5)
	require.NoError(t, err)
	p, err := subscription.NewPlan(slug, slug, q, vo.NewFeatures(features...))
	require.NoError(t, err)
	return p
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	log := testutil.NewMockLogger()
	g := &gateway{
		plans: testutil.NewMockPlanRepository(
			mustPlan(t, "free", vo.PeriodOneTime, 3),
			mustPlan(t, "pro", vo.PeriodDaily, 100, "batch"),
			mustPlan(t, "max", vo.PeriodDaily, vo.Unlimited, "batch"),
		),
		subs:     testutil.NewMockSubscriptionRepository(),
		users:    testutil.NewMockUserRepository(),
		tokens:   testutil.NewMockAccessTokenRepository(),
		counters: testutil.NewMockCounterRepository(),
		events:   testutil.NewMockEventRepository(),
	}
	registry := subservices.NewPlanRegistry(g.plans, log)
	g.record = subservices.NewSubscriptionRecord(g.subs, g.users, registry, nil, testutil.Transactor{}, log)
	g.store = authapp.NewTokenStore(infraauth.NewJWTService("jwt-secret", "gatekeeper", time.Hour), token.NewHasher(), g.tokens, log)
	g.counter = usageservices.NewCounter(g.counters, log)

	metered := []string{"resize"}
	g.exchange = NewExchangeSessionUseCase(infraauth.NewSessionVerifier(sessionSecret, ""), g.users, g.store, testutil.Transactor{}, "https://app.test/login", log)
	g.authn = NewAuthenticateUseCase(g.store, time.Second, log)
	g.info = NewGetUserInfoUseCase(g.users, g.record, registry, g.counter, metered, time.Second, log)
	g.track = NewTrackUsageUseCase(g.record, g.counter, g.events, metered, time.Second, log)
	g.logout = NewLogoutUseCase(g.store, log)
	return g
}

func sessionToken(t *testing.T, subject, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"name":  "Test User",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(sessionSecret))
	require.NoError(t, err)
	return s
}

func (g *gateway) subscribe(t *testing.T, subject, plan string) {
	t.Helper()
	g.users.AddUser(subject, "cus_"+subject)
	res, err := g.record.ApplyBillingEvent(context.Background(), subservices.SyncCommand{
		CustomerRef: "cus_" + subject,
		PlanSlug:    plan,
		Status:      vo.StatusActive,
		ExternalRef: "sub_" + subject,
		EventID:     "evt_" + subject,
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, res.Changed)
}

func TestExchangeSession(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		out, err := g.exchange.Execute(ctx, "")
		require.NoError(t, err)
		assert.False(t, out.Authenticated)
		assert.Equal(t, "https://app.test/login", out.LoginURL)
	})

	t.Run("forged session", func(t *testing.T) {
		out, err := g.exchange.Execute(ctx, "not.a.jwt")
		require.NoError(t, err)
		assert.False(t, out.Authenticated)
	})

	t.Run("valid session issues a working token", func(t *testing.T) {
		out, err := g.exchange.Execute(ctx, sessionToken(t, "user_1", "a@example.com"))
		require.NoError(t, err)
		require.True(t, out.Authenticated)
		require.NotNil(t, out.User)
		assert.Equal(t, "user_1", out.User.ID)
		assert.Equal(t, "a@example.com", out.User.Email)

		subject, err := g.authn.Execute(ctx, out.Token)
		require.NoError(t, err)
		assert.Equal(t, "user_1", subject)

		_, err = g.users.GetBySubject(ctx, "user_1")
		assert.NoError(t, err)
	})

	t.Run("upsert failure surfaces", func(t *testing.T) {
		g.users.UpsertError = errors.New("db down")
		defer func() { g.users.UpsertError = nil }()

		_, err := g.exchange.Execute(ctx, sessionToken(t, "user_2", ""))
		assert.Error(t, err)
	})
}

func TestAuthenticate_Rejections(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	_, err := g.authn.Execute(ctx, "")
	assert.Equal(t, accesstoken.ReasonMissing, accesstoken.ReasonOf(err))

	tok, _, err := g.store.Issue(ctx, "user_1")
	require.NoError(t, err)
	require.NoError(t, g.logout.Execute(ctx, tok))

	_, err = g.authn.Execute(ctx, tok)
	assert.Equal(t, accesstoken.ReasonRevoked, accesstoken.ReasonOf(err))
}

// slowTokens blocks until the context is done.
type slowTokens struct{ TokenStore }

func (slowTokens) Validate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAuthenticate_TimeoutIsUnavailable(t *testing.T) {
	uc := NewAuthenticateUseCase(slowTokens{}, 10*time.Millisecond, testutil.NewMockLogger())

	_, err := uc.Execute(context.Background(), "whatever")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailableError(err))
}

func TestGetUserInfo(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	_, err := g.info.Execute(ctx, "ghost")
	assert.True(t, apperrors.IsNotFoundError(err))

	g.users.AddUser("free_user", "")
	info, err := g.info.Execute(ctx, "free_user")
	require.NoError(t, err)
	assert.Equal(t, "free", info.Subscription.Plan)
	assert.Equal(t, "active", info.Subscription.Status)
	assert.Equal(t, 3, info.Subscription.Limits.Limit)
	assert.Equal(t, int64(3), info.Subscription.Usage["resize"].Remaining)
	assert.Equal(t, vo.LifetimePeriodKey, info.Subscription.Usage["resize"].PeriodKey)
	assert.Zero(t, g.subs.Count(), "reads never persist the default subscription")

	g.subscribe(t, "pro_user", "pro")
	_, err = g.track.Execute(ctx, TrackUsageCommand{Subject: "pro_user", Action: "resize"})
	require.NoError(t, err)

	info, err = g.info.Execute(ctx, "pro_user")
	require.NoError(t, err)
	assert.Equal(t, "pro", info.Subscription.Plan)
	assert.Equal(t, []string{"batch"}, []string(info.Subscription.Features))
	assert.Equal(t, int64(1), info.Subscription.Usage["resize"].Used)
	assert.Equal(t, int64(99), info.Subscription.Usage["resize"].Remaining)
}

func TestTrackUsage_FreePlanExhaustion(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()
	g.users.AddUser("u1", "")

	for i := 1; i <= 3; i++ {
		out, err := g.track.Execute(ctx, TrackUsageCommand{Subject: "u1", Action: "resize"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), out.Used)
		assert.Equal(t, int64(3-i), out.Remaining)
	}

	_, err := g.track.Execute(ctx, TrackUsageCommand{Subject: "u1", Action: "resize"})
	var exceeded *usage.QuotaExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(3), exceeded.Decision.Used)
	assert.Equal(t, int64(3), exceeded.Decision.Limit)
	assert.Len(t, g.events.Events(), 3, "denied actions are not logged")
}

func TestTrackUsage_DailyPeriodRollsOver(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()
	g.subscribe(t, "u1", "pro")

	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := biztime.SetNowFunc(func() time.Time { return day })
	defer restore()

	key := usage.CounterKey{Subject: "u1", Action: "resize", PeriodKey: "2024-03-01"}
	g.counters.Set(key, 100)
	_, err := g.track.Execute(ctx, TrackUsageCommand{Subject: "u1", Action: "resize"})
	assert.ErrorIs(t, err, usage.ErrQuotaExceeded)

	day = day.Add(24 * time.Hour)
	out, err := g.track.Execute(ctx, TrackUsageCommand{Subject: "u1", Action: "resize"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Used)
}

func TestTrackUsage_Unlimited(t *testing.T) {
	g := newGateway(t)
	g.subscribe(t, "u1", "max")

	out, err := g.track.Execute(context.Background(), TrackUsageCommand{Subject: "u1", Action: "resize"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Used)
	assert.Equal(t, int64(vo.Unlimited), out.Remaining)
}

func TestTrackUsage_UnmeteredActionOnlyLogs(t *testing.T) {
	g := newGateway(t)
	g.users.AddUser("u1", "")

	out, err := g.track.Execute(context.Background(), TrackUsageCommand{Subject: "u1", Action: "export"})
	require.NoError(t, err)
	assert.Zero(t, out.Used)
	assert.Equal(t, int64(vo.Unlimited), out.Remaining)

	events := g.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "export", events[0].Action)
	assert.Equal(t, "free", events[0].PlanSlug)
}

func TestTrackUsage_BatchCeiling(t *testing.T) {
	g := newGateway(t)
	g.users.AddUser("u1", "")

	_, err := g.track.Execute(context.Background(), TrackUsageCommand{Subject: "u1", Action: "resize", BatchSize: 6})
	assert.True(t, apperrors.IsAppError(err))
}

func TestTrackUsage_EventAppendFailureDoesNotDeny(t *testing.T) {
	g := newGateway(t)
	g.users.AddUser("u1", "")
	g.events.AppendError = errors.New("disk full")

	out, err := g.track.Execute(context.Background(), TrackUsageCommand{Subject: "u1", Action: "resize"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Used)
}

// Concurrent calls at the edge of the quota never overshoot the limit.
func TestTrackUsage_ConcurrentCallsNeverOvershoot(t *testing.T) {
	g := newGateway(t)
	g.users.AddUser("u1", "")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.track.Execute(context.Background(), TrackUsageCommand{Subject: "u1", Action: "resize"}); err == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
	used, err := g.counter.Peek(context.Background(), "u1", "resize", vo.LifetimePeriodKey)
	require.NoError(t, err)
	assert.Equal(t, int64(3), used)
}
