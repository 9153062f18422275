package repository

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/db"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db, logger: logger}
}

func (r *SubscriptionRepositoryImpl) GetBySubject(ctx context.Context, subject string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).Where("subject = ?", subject).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to load subscription", "error", err, "subject", subject)
		return nil, storageError("load subscription", err)
	}
	return toSubscriptionEntity(&model)
}

// Save updates by primary key when the entity has one and otherwise upserts
// on subject, so two first events racing for one subject still leave a
// single row.
func (r *SubscriptionRepositoryImpl) Save(ctx context.Context, sub *subscription.Subscription) error {
	tx := db.GetTxFromContext(ctx, r.db)
	model := toSubscriptionModel(sub)
	columns := map[string]any{
		"plan_slug":     model.PlanSlug,
		"status":        model.Status,
		"external_ref":  model.ExternalRef,
		"customer_ref":  model.CustomerRef,
		"period_start":  model.PeriodStart,
		"period_end":    model.PeriodEnd,
		"limits_json":   model.Limits,
		"last_event_id": model.LastEventID,
		"last_event_at": model.LastEventAt,
		"updated_at":    model.UpdatedAt,
	}

	if sub.ID() != 0 {
		if err := tx.Model(&models.SubscriptionModel{}).Where("id = ?", sub.ID()).Updates(columns).Error; err != nil {
			r.logger.Errorw("failed to update subscription", "error", err, "subject", sub.Subject())
			return storageError("update subscription", err)
		}
		return nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoUpdates: clause.Assignments(columns),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert subscription", "error", err, "subject", sub.Subject())
		return storageError("upsert subscription", err)
	}

	var stored models.SubscriptionModel
	if err := tx.Select("id").Where("subject = ?", sub.Subject()).First(&stored).Error; err != nil {
		return storageError("reload subscription", err)
	}
	sub.SetID(stored.ID)
	return nil
}

func toSubscriptionModel(s *subscription.Subscription) *models.SubscriptionModel {
	return &models.SubscriptionModel{
		ID:          s.ID(),
		Subject:     s.Subject(),
		PlanSlug:    s.PlanSlug(),
		Status:      s.Status().String(),
		ExternalRef: s.ExternalRef(),
		CustomerRef: s.CustomerRef(),
		PeriodStart: s.PeriodStart(),
		PeriodEnd:   s.PeriodEnd(),
		Limits:      datatypes.NewJSONType(toQuotaJSON(s.Quota())),
		LastEventID: s.LastEventID(),
		LastEventAt: s.LastEventAt(),
		CreatedAt:   s.CreatedAt(),
		UpdatedAt:   s.UpdatedAt(),
	}
}

func toSubscriptionEntity(m *models.SubscriptionModel) (*subscription.Subscription, error) {
	return subscription.ReconstructSubscription(m.ID, m.Subject, m.PlanSlug,
		vo.SubscriptionStatus(m.Status), m.ExternalRef, m.CustomerRef, m.PeriodStart, m.PeriodEnd,
		fromQuotaJSON(m.Limits.Data()), m.LastEventID, m.LastEventAt, m.CreatedAt, m.UpdatedAt)
}
