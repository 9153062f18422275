package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/repolens/gatekeeper/internal/domain/billing"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	"github.com/repolens/gatekeeper/internal/shared/config"
)

// PlanLookup is the part of the plan registry the resolver needs.
type PlanLookup interface {
	GetPlan(ctx context.Context, slug string) (*subscription.Plan, error)
	GetByPriceID(ctx context.Context, priceID string) (*subscription.Plan, error)
}

// PlanResolver maps a billing price to a plan slug. Configured price
// bindings win over the price stored on the plan row, which wins over the
// subscription's "plan" metadata.
type PlanResolver struct {
	prices map[string]string
	plans  PlanLookup
}

func NewPlanResolver(pricePlans []config.PricePlan, plans PlanLookup) *PlanResolver {
	prices := make(map[string]string, len(pricePlans))
	for _, pp := range pricePlans {
		if pp.PriceID != "" && pp.Plan != "" {
			prices[pp.PriceID] = pp.Plan
		}
	}
	return &PlanResolver{prices: prices, plans: plans}
}

// Resolve returns billing.ErrUnmappedPrice when nothing maps.
func (r *PlanResolver) Resolve(ctx context.Context, ev *billing.Event) (string, error) {
	if slug, ok := r.prices[ev.PriceRef]; ok {
		return slug, nil
	}

	if ev.PriceRef != "" {
		plan, err := r.plans.GetByPriceID(ctx, ev.PriceRef)
		if err == nil {
			return plan.Slug(), nil
		}
		if !errors.Is(err, subscription.ErrPlanNotFound) {
			return "", err
		}
	}

	if ev.PlanHint != "" {
		plan, err := r.plans.GetPlan(ctx, ev.PlanHint)
		if err == nil {
			return plan.Slug(), nil
		}
		if !errors.Is(err, subscription.ErrPlanNotFound) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: price %q", billing.ErrUnmappedPrice, ev.PriceRef)
}

// PriceFor returns the price to check out plan with: a configured binding
// first, then the plan's stored price.
func (r *PlanResolver) PriceFor(plan *subscription.Plan) string {
	for price, slug := range r.prices {
		if slug == plan.Slug() {
			return price
		}
	}
	return plan.StripePriceID()
}
