package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/db"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type UsageEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageEventRepository(db *gorm.DB, logger logger.Interface) usage.EventRepository {
	return &UsageEventRepositoryImpl{db: db, logger: logger}
}

// Append inserts one event. Events are never updated; only retention deletes them.
func (r *UsageEventRepositoryImpl) Append(ctx context.Context, event *usage.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	model := &models.UsageEventModel{
		ID:        event.ID,
		Subject:   event.Subject,
		Action:    event.Action,
		Plan:      event.PlanSlug,
		PeriodKey: event.PeriodKey,
		Metadata:  datatypes.JSONMap(event.Metadata),
		CreatedAt: event.CreatedAt,
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to append usage event", "error", err, "subject", event.Subject, "action", event.Action)
		return storageError("append usage event", err)
	}
	return nil
}

func (r *UsageEventRepositoryImpl) ListBySubject(ctx context.Context, subject string, since time.Time, limit int) ([]*usage.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []*models.UsageEventModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("subject = ? AND created_at >= ?", subject, since.UTC()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to list usage events", "error", err, "subject", subject)
		return nil, storageError("list usage events", err)
	}

	events := make([]*usage.Event, 0, len(rows))
	for _, m := range rows {
		events = append(events, &usage.Event{
			ID:        m.ID,
			Subject:   m.Subject,
			Action:    m.Action,
			PlanSlug:  m.Plan,
			PeriodKey: m.PeriodKey,
			Metadata:  decodedMetadata(m.Metadata),
			CreatedAt: m.CreatedAt,
		})
	}
	return events, nil
}

// decodedMetadata undoes datatypes.JSONMap's UseNumber decoding so callers
// read back float64 numbers, the same shape they appended from a JSON body.
// A NULL column scans as an empty map and comes back nil.
func decodedMetadata(m datatypes.JSONMap) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainNumbers(v)
	}
	return out
}

func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = plainNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = plainNumbers(e)
		}
		return t
	default:
		return v
	}
}

func (r *UsageEventRepositoryImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&models.UsageEventModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to prune usage events", "error", result.Error, "cutoff", cutoff)
		return 0, storageError("prune usage events", result.Error)
	}
	return result.RowsAffected, nil
}
