package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/db"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type AccessTokenRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewAccessTokenRepository(db *gorm.DB, logger logger.Interface) accesstoken.Repository {
	return &AccessTokenRepositoryImpl{db: db, logger: logger}
}

func (r *AccessTokenRepositoryImpl) Create(ctx context.Context, token *accesstoken.AccessToken) error {
	model := &models.AccessTokenModel{
		Subject:   token.Subject(),
		TokenHash: token.TokenHash(),
		IssuedAt:  token.IssuedAt(),
		ExpiresAt: token.ExpiresAt(),
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to persist access token", "error", err, "subject", token.Subject())
		return storageError("create access token", err)
	}
	token.SetID(model.ID)
	return nil
}

func (r *AccessTokenRepositoryImpl) GetByHash(ctx context.Context, tokenHash string) (*accesstoken.AccessToken, error) {
	var model models.AccessTokenModel
	if err := db.GetTxFromContext(ctx, r.db).Where("token_hash = ?", tokenHash).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accesstoken.ErrTokenNotFound
		}
		r.logger.Errorw("failed to load access token", "error", err)
		return nil, storageError("load access token", err)
	}
	return accesstoken.ReconstructAccessToken(model.ID, model.Subject, model.TokenHash,
		model.IssuedAt, model.ExpiresAt, model.RevokedAt, model.LastUsedAt), nil
}

func (r *AccessTokenRepositoryImpl) MarkRevoked(ctx context.Context, tokenHash string, at time.Time) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.AccessTokenModel{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", at.UTC())
	if result.Error != nil {
		r.logger.Errorw("failed to revoke access token", "error", result.Error)
		return storageError("revoke access token", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Nothing updated: either already revoked or unknown.
	var count int64
	if err := tx.Model(&models.AccessTokenModel{}).Where("token_hash = ?", tokenHash).Count(&count).Error; err != nil {
		return storageError("revoke access token", err)
	}
	if count == 0 {
		return accesstoken.ErrTokenNotFound
	}
	return nil
}

func (r *AccessTokenRepositoryImpl) UpdateLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	err := db.GetTxFromContext(ctx, r.db).Model(&models.AccessTokenModel{}).
		Where("token_hash = ?", tokenHash).
		Update("last_used_at", at.UTC()).Error
	if err != nil {
		return storageError("update token last used", err)
	}
	return nil
}

func (r *AccessTokenRepositoryImpl) RevokeAllForSubject(ctx context.Context, subject string, at time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.AccessTokenModel{}).
		Where("subject = ? AND revoked_at IS NULL", subject).
		Update("revoked_at", at.UTC())
	if result.Error != nil {
		r.logger.Errorw("failed to revoke tokens for subject", "error", result.Error, "subject", subject)
		return 0, storageError("revoke tokens for subject", result.Error)
	}
	r.logger.Infow("access tokens revoked", "subject", subject, "count", result.RowsAffected)
	return result.RowsAffected, nil
}
