package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingservices "github.com/repolens/gatekeeper/internal/application/billing/services"
	subservices "github.com/repolens/gatekeeper/internal/application/subscription/services"
	"github.com/repolens/gatekeeper/internal/application/testutil"
	"github.com/repolens/gatekeeper/internal/domain/billing"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/shared/config"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
)

type fakeProvider struct {
	customers    int
	checkoutArgs []string
	events       []*billing.Event
	listErr      error
}

func (p *fakeProvider) CreateCustomer(_ context.Context, subject, _, _ string) (string, error) {
	p.customers++
	return "cus_" + subject, nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, customerID, priceID, planSlug string) (string, error) {
	p.checkoutArgs = []string{customerID, priceID, planSlug}
	return "https://checkout.example/" + planSlug, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID string) (string, error) {
	return "https://portal.example/" + customerID, nil
}

func (p *fakeProvider) ListEvents(_ context.Context, _ time.Time, fn func(*billing.Event) error) error {
	for _, ev := range p.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return p.listErr
}

type recordingProcessor struct {
	seen []string
	fail map[string]bool
}

func (r *recordingProcessor) Process(_ context.Context, ev *billing.Event) error {
	r.seen = append(r.seen, ev.ID)
	if r.fail[ev.ID] {
		return errors.New("storage down")
	}
	return nil
}

func newRegistry(t *testing.T) (*subservices.PlanRegistry, *testutil.MockPlanRepository) {
	t.Helper()
	mk := func(slug string, limit int) *subscription.Plan {
		p, err := subscription.NewPlan(slug, slug, vo.Quota{PeriodType: vo.PeriodDaily, Limit: limit}, nil)
		require.NoError(t, err)
		return p
	}
	repo := testutil.NewMockPlanRepository(mk("free", 3), mk("pro", 100), mk("team", 500))
	return subservices.NewPlanRegistry(repo, testutil.NewMockLogger()), repo
}

func TestCreateCheckout_CreatesCustomerOnce(t *testing.T) {
	reg, _ := newRegistry(t)
	users := testutil.NewMockUserRepository()
	users.AddUser("u1", "")
	provider := &fakeProvider{}
	resolver := billingservices.NewPlanResolver([]config.PricePlan{{PriceID: "price_Pro", Plan: "pro"}}, reg)
	uc := NewCreateCheckoutUseCase(users, reg, resolver, provider, testutil.NewMockLogger())
	ctx := context.Background()

	url, err := uc.Execute(ctx, CreateCheckoutCommand{Subject: "u1", PlanSlug: "pro"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/pro", url)
	assert.Equal(t, []string{"cus_u1", "price_Pro", "pro"}, provider.checkoutArgs)

	_, err = uc.Execute(ctx, CreateCheckoutCommand{Subject: "u1", PlanSlug: "pro"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.customers)

	u, err := users.GetByBillingCustomerID(ctx, "cus_u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.Subject())
}

func TestCreateCheckout_Rejections(t *testing.T) {
	reg, _ := newRegistry(t)
	users := testutil.NewMockUserRepository()
	users.AddUser("u1", "")
	resolver := billingservices.NewPlanResolver(nil, reg)
	uc := NewCreateCheckoutUseCase(users, reg, resolver, &fakeProvider{}, testutil.NewMockLogger())
	ctx := context.Background()

	_, err := uc.Execute(ctx, CreateCheckoutCommand{Subject: "u1", PlanSlug: "free"})
	assert.True(t, apperrors.IsAppError(err))

	_, err = uc.Execute(ctx, CreateCheckoutCommand{Subject: "u1", PlanSlug: "team"})
	assert.True(t, apperrors.IsAppError(err), "team has no price")

	_, err = uc.Execute(ctx, CreateCheckoutCommand{Subject: "u1", PlanSlug: "ghost"})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestCreatePortal(t *testing.T) {
	users := testutil.NewMockUserRepository()
	users.AddUser("u1", "cus_1")
	users.AddUser("u2", "")
	uc := NewCreatePortalUseCase(users, &fakeProvider{}, testutil.NewMockLogger())

	url, err := uc.Execute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/cus_1", url)

	_, err = uc.Execute(context.Background(), "u2")
	assert.True(t, apperrors.IsAppError(err))

	_, err = uc.Execute(context.Background(), "nobody")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestReconcile_ContinuesPastFailures(t *testing.T) {
	provider := &fakeProvider{events: []*billing.Event{{ID: "evt_1"}, {ID: "evt_2"}, {ID: "evt_3"}}}
	proc := &recordingProcessor{fail: map[string]bool{"evt_2": true}}
	uc := NewReconcileUseCase(provider, proc, 24*time.Hour, testutil.NewMockLogger())

	res, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Seen: 3, Failed: 1}, res)
	assert.Equal(t, []string{"evt_1", "evt_2", "evt_3"}, proc.seen)
}

func TestReconcile_ListFailure(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("stripe unavailable")}
	uc := NewReconcileUseCase(provider, &recordingProcessor{}, time.Hour, testutil.NewMockLogger())

	_, err := uc.Execute(context.Background())
	assert.Error(t, err)
}
