package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/repolens/gatekeeper/internal/shared/constants"
)

// UsageCounterModel is unique on (subject, action, period_key); increments
// are done in SQL so concurrent writers never lose updates.
type UsageCounterModel struct {
	ID              uint      `gorm:"primarykey"`
	Subject         string    `gorm:"not null;size:191;uniqueIndex:idx_usage_counter_key,priority:1"`
	Action          string    `gorm:"not null;size:64;uniqueIndex:idx_usage_counter_key,priority:2"`
	PeriodKey       string    `gorm:"not null;size:32;uniqueIndex:idx_usage_counter_key,priority:3"`
	Count           int64     `gorm:"not null;default:0"`
	LastIncrementAt time.Time `gorm:"not null"`
	CreatedAt       time.Time
}

func (UsageCounterModel) TableName() string {
	return constants.TableUsageCounters
}

// UsageEventModel is the append-only analytics log.
type UsageEventModel struct {
	ID        string            `gorm:"primarykey;size:36"`
	Subject   string            `gorm:"not null;size:191;index:idx_usage_event_subject_time,priority:1"`
	Action    string            `gorm:"not null;size:64"`
	Plan      string            `gorm:"not null;size:64"`
	PeriodKey string            `gorm:"size:32"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata_json"`
	CreatedAt time.Time         `gorm:"index:idx_usage_event_subject_time,priority:2"`
}

func (UsageEventModel) TableName() string {
	return constants.TableUsageEvents
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&UserModel{},
		&AccessTokenModel{},
		&PlanModel{},
		&SubscriptionModel{},
		&UsageCounterModel{},
		&UsageEventModel{},
	}
}
