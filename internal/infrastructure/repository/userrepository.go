package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/repolens/gatekeeper/internal/domain/user"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/db"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserRepository(db *gorm.DB, logger logger.Interface) user.Repository {
	return &UserRepositoryImpl{db: db, logger: logger}
}

func (r *UserRepositoryImpl) GetBySubject(ctx context.Context, subject string) (*user.User, error) {
	return r.first(ctx, "subject = ?", subject)
}

func (r *UserRepositoryImpl) GetByBillingCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	if customerID == "" {
		return nil, user.ErrUserNotFound
	}
	return r.first(ctx, "billing_customer_id = ?", customerID)
}

func (r *UserRepositoryImpl) first(ctx context.Context, query string, arg any) (*user.User, error) {
	var model models.UserModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		r.logger.Errorw("failed to load user", "error", err, "query", query)
		return nil, storageError("load user", err)
	}
	return toUserEntity(&model), nil
}

func (r *UserRepositoryImpl) Upsert(ctx context.Context, u *user.User) (*user.User, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	now := time.Now().UTC()

	updates := map[string]any{"updated_at": now}
	if u.Email() != "" {
		updates["email"] = u.Email()
	}
	if u.Name() != "" {
		updates["name"] = u.Name()
	}

	model := toUserModel(u)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert user", "error", err, "subject", u.Subject())
		return nil, storageError("upsert user", err)
	}

	var stored models.UserModel
	if err := tx.Where("subject = ?", u.Subject()).First(&stored).Error; err != nil {
		return nil, storageError("reload user", err)
	}
	return toUserEntity(&stored), nil
}

func (r *UserRepositoryImpl) Update(ctx context.Context, u *user.User) error {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.UserModel{}).
		Where("id = ?", u.ID()).
		Updates(map[string]any{
			"email":               u.Email(),
			"name":                u.Name(),
			"billing_customer_id": nullableString(u.BillingCustomerID()),
			"updated_at":          u.UpdatedAt(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update user", "error", result.Error, "subject", u.Subject())
		return storageError("update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func toUserModel(u *user.User) *models.UserModel {
	return &models.UserModel{
		ID:                u.ID(),
		Subject:           u.Subject(),
		Email:             u.Email(),
		Name:              u.Name(),
		BillingCustomerID: nullableString(u.BillingCustomerID()),
		CreatedAt:         u.CreatedAt(),
		UpdatedAt:         u.UpdatedAt(),
	}
}

func toUserEntity(m *models.UserModel) *user.User {
	var customerID string
	if m.BillingCustomerID != nil {
		customerID = *m.BillingCustomerID
	}
	return user.ReconstructUser(m.ID, m.Subject, m.Email, m.Name, customerID, m.CreatedAt, m.UpdatedAt)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
