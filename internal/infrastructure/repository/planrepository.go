package repository

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/db"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) subscription.PlanRepository {
	return &PlanRepositoryImpl{db: db, logger: logger}
}

func (r *PlanRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*subscription.Plan, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *PlanRepositoryImpl) GetByStripePriceID(ctx context.Context, priceID string) (*subscription.Plan, error) {
	if priceID == "" {
		return nil, subscription.ErrPlanNotFound
	}
	return r.first(ctx, "stripe_price_id = ?", priceID)
}

func (r *PlanRepositoryImpl) first(ctx context.Context, query string, arg any) (*subscription.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrPlanNotFound
		}
		r.logger.Errorw("failed to load plan", "error", err, "query", query)
		return nil, storageError("load plan", err)
	}
	return toPlanEntity(&model)
}

func (r *PlanRepositoryImpl) List(ctx context.Context) ([]*subscription.Plan, error) {
	var rows []*models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		return nil, storageError("list plans", err)
	}
	plans := make([]*subscription.Plan, 0, len(rows))
	for _, m := range rows {
		p, err := toPlanEntity(m)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *subscription.Plan) error {
	model := toPlanModel(plan)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return subscription.ErrPlanSlugExists
		}
		r.logger.Errorw("failed to create plan", "error", err, "slug", plan.Slug())
		return storageError("create plan", err)
	}
	plan.SetID(model.ID)
	r.logger.Infow("plan created", "slug", plan.Slug(), "plan_id", model.ID)
	return nil
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, plan *subscription.Plan) error {
	model := toPlanModel(plan)
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("id = ?", plan.ID()).
		Updates(map[string]any{
			"name":            model.Name,
			"limits_json":     model.Limits,
			"features_json":   model.Features,
			"active":          model.Active,
			"sort_order":      model.SortOrder,
			"stripe_price_id": model.StripePriceID,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan", "error", result.Error, "slug", plan.Slug())
		return storageError("update plan", result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrPlanNotFound
	}
	r.logger.Infow("plan updated", "slug", plan.Slug(), "limit", plan.Quota().Limit, "period", plan.Quota().PeriodType)
	return nil
}

func toPlanModel(p *subscription.Plan) *models.PlanModel {
	return &models.PlanModel{
		ID:            p.ID(),
		Slug:          p.Slug(),
		Name:          p.Name(),
		Limits:        datatypes.NewJSONType(toQuotaJSON(p.Quota())),
		Features:      datatypes.NewJSONSlice([]string(p.Features())),
		Active:        p.IsActive(),
		SortOrder:     p.SortOrder(),
		StripePriceID: nullableString(p.StripePriceID()),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
	}
}

func toPlanEntity(m *models.PlanModel) (*subscription.Plan, error) {
	var priceID string
	if m.StripePriceID != nil {
		priceID = *m.StripePriceID
	}
	return subscription.ReconstructPlan(m.ID, m.Slug, m.Name, fromQuotaJSON(m.Limits.Data()),
		vo.NewFeatures(m.Features...), m.Active, m.SortOrder, priceID, m.CreatedAt, m.UpdatedAt)
}

func toQuotaJSON(q vo.Quota) models.QuotaJSON {
	return models.QuotaJSON{
		PeriodType:   string(q.PeriodType),
		Limit:        q.Limit,
		BatchCeiling: q.BatchCeiling,
	}
}

func fromQuotaJSON(q models.QuotaJSON) vo.Quota {
	return vo.Quota{
		PeriodType:   vo.PeriodType(q.PeriodType),
		Limit:        q.Limit,
		BatchCeiling: q.BatchCeiling,
	}
}
