package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// PlanRegistry is the single source of plan limits. Nothing else in the
// service carries literal quota numbers.
type PlanRegistry struct {
	repo   subscription.PlanRepository
	logger logger.Interface
}

func NewPlanRegistry(repo subscription.PlanRepository, logger logger.Interface) *PlanRegistry {
	return &PlanRegistry{repo: repo, logger: logger}
}

func (r *PlanRegistry) GetPlan(ctx context.Context, slug string) (*subscription.Plan, error) {
	return r.repo.GetBySlug(ctx, slug)
}

// GetDefaultPlan returns the free plan. Its absence is a deployment defect:
// the seed step was skipped or the row was removed by hand.
func (r *PlanRegistry) GetDefaultPlan(ctx context.Context) (*subscription.Plan, error) {
	plan, err := r.repo.GetBySlug(ctx, constants.DefaultPlanSlug)
	if err != nil {
		if errors.Is(err, subscription.ErrPlanNotFound) {
			r.logger.Errorw("default plan missing, run the seed command", "slug", constants.DefaultPlanSlug)
			return nil, fmt.Errorf("%w: plan %q not found", subscription.ErrConfigurationDefect, constants.DefaultPlanSlug)
		}
		return nil, err
	}
	return plan, nil
}

// GetByPriceID finds the plan whose stored Stripe price matches.
func (r *PlanRegistry) GetByPriceID(ctx context.Context, priceID string) (*subscription.Plan, error) {
	return r.repo.GetByStripePriceID(ctx, priceID)
}

func (r *PlanRegistry) ListPlans(ctx context.Context) ([]*subscription.Plan, error) {
	return r.repo.List(ctx)
}

// UpdatePlanCommand carries a partial update; nil fields stay unchanged.
type UpdatePlanCommand struct {
	Slug          string
	Name          *string
	Quota         *vo.Quota
	Features      []string
	Active        *bool
	SortOrder     *int
	StripePriceID *string
}

func (r *PlanRegistry) UpdatePlan(ctx context.Context, cmd UpdatePlanCommand) (*subscription.Plan, error) {
	plan, err := r.repo.GetBySlug(ctx, cmd.Slug)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		if err := plan.Rename(*cmd.Name); err != nil {
			return nil, err
		}
	}
	if cmd.Quota != nil {
		if err := plan.ChangeQuota(*cmd.Quota); err != nil {
			return nil, err
		}
	}
	if cmd.Features != nil {
		plan.SetFeatures(vo.NewFeatures(cmd.Features...))
	}
	if cmd.Active != nil {
		if err := plan.SetActive(*cmd.Active); err != nil {
			return nil, err
		}
	}
	if cmd.SortOrder != nil {
		plan.SetSortOrder(*cmd.SortOrder)
	}
	if cmd.StripePriceID != nil {
		plan.SetStripePriceID(*cmd.StripePriceID)
	}

	if err := r.repo.Update(ctx, plan); err != nil {
		r.logger.Errorw("failed to update plan", "error", err, "slug", cmd.Slug)
		return nil, err
	}

	r.logger.Infow("plan updated", "slug", plan.Slug(), "limit", plan.Quota().Limit, "period", plan.Quota().PeriodType)
	return plan, nil
}

// Upsert creates the plan or overwrites every field of the stored one. Used
// by seeding, so running it twice leaves the same rows.
func (r *PlanRegistry) Upsert(ctx context.Context, plan *subscription.Plan) (created bool, err error) {
	existing, err := r.repo.GetBySlug(ctx, plan.Slug())
	if errors.Is(err, subscription.ErrPlanNotFound) {
		if err := r.repo.Create(ctx, plan); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if err := existing.Rename(plan.Name()); err != nil {
		return false, err
	}
	if err := existing.ChangeQuota(plan.Quota()); err != nil {
		return false, err
	}
	existing.SetFeatures(plan.Features())
	if err := existing.SetActive(plan.IsActive()); err != nil {
		return false, err
	}
	existing.SetSortOrder(plan.SortOrder())
	existing.SetStripePriceID(plan.StripePriceID())

	if err := r.repo.Update(ctx, existing); err != nil {
		return false, err
	}
	plan.SetID(existing.ID())
	return false, nil
}
