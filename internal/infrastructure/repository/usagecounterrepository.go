package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/db"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

var counterKeyColumns = []clause.Column{{Name: "subject"}, {Name: "action"}, {Name: "period_key"}}

type UsageCounterRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageCounterRepository(db *gorm.DB, logger logger.Interface) usage.CounterRepository {
	return &UsageCounterRepositoryImpl{db: db, logger: logger}
}

// Increment is a single INSERT ... ON CONFLICT DO UPDATE count = count + 1.
// The follow-up read runs in the same transaction, while the upsert still
// holds the row lock, so it sees exactly this caller's increment.
func (r *UsageCounterRepositoryImpl) Increment(ctx context.Context, key usage.CounterKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		row := &models.UsageCounterModel{
			Subject:         key.Subject,
			Action:          key.Action,
			PeriodKey:       key.PeriodKey,
			Count:           1,
			LastIncrementAt: now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: counterKeyColumns,
			DoUpdates: clause.Assignments(map[string]any{
				"count":             gorm.Expr("usage_counters.count + 1"),
				"last_increment_at": now,
			}),
		}).Create(row).Error
		if err != nil {
			return err
		}
		return r.readCount(tx, key, &count)
	})
	if err != nil {
		r.logger.Errorw("failed to increment usage counter", "error", err, "subject", key.Subject, "action", key.Action)
		return 0, storageError("increment usage counter", err)
	}
	return count, nil
}

// IncrementIfBelow makes sure the row exists, then increments it with a
// conditional UPDATE. The database evaluates "count < limit" and the write
// atomically, so concurrent callers can never push the count past limit.
func (r *UsageCounterRepositoryImpl) IncrementIfBelow(ctx context.Context, key usage.CounterKey, limit int64) (bool, int64, error) {
	if err := key.Validate(); err != nil {
		return false, 0, err
	}

	var (
		incremented bool
		count       int64
	)
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := &models.UsageCounterModel{
			Subject:         key.Subject,
			Action:          key.Action,
			PeriodKey:       key.PeriodKey,
			LastIncrementAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{Columns: counterKeyColumns, DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		result := tx.Model(&models.UsageCounterModel{}).
			Where("subject = ? AND action = ? AND period_key = ? AND count < ?", key.Subject, key.Action, key.PeriodKey, limit).
			Updates(map[string]any{
				"count":             gorm.Expr("count + 1"),
				"last_increment_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		incremented = result.RowsAffected == 1
		return r.readCount(tx, key, &count)
	})
	if err != nil {
		r.logger.Errorw("failed to reserve usage", "error", err, "subject", key.Subject, "action", key.Action)
		return false, 0, storageError("reserve usage", err)
	}
	return incremented, count, nil
}

func (r *UsageCounterRepositoryImpl) Get(ctx context.Context, key usage.CounterKey) (int64, error) {
	var count int64
	err := r.readCount(db.GetTxFromContext(ctx, r.db), key, &count)
	if err != nil {
		r.logger.Errorw("failed to read usage counter", "error", err, "subject", key.Subject, "action", key.Action)
		return 0, storageError("read usage counter", err)
	}
	return count, nil
}

func (r *UsageCounterRepositoryImpl) readCount(tx *gorm.DB, key usage.CounterKey, out *int64) error {
	var row models.UsageCounterModel
	err := tx.Select("count").
		Where("subject = ? AND action = ? AND period_key = ?", key.Subject, key.Action, key.PeriodKey).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*out = 0
		return nil
	}
	if err != nil {
		return err
	}
	*out = row.Count
	return nil
}

func (r *UsageCounterRepositoryImpl) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return db.GetTxFromContext(ctx, r.db).Transaction(fn)
}
