package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/repolens/gatekeeper/internal/shared/constants"
)

// SubscriptionModel holds one row per subject. Limits is the quota snapshot
// copied from the plan at the last billing sync.
type SubscriptionModel struct {
	ID          uint                          `gorm:"primarykey"`
	Subject     string                        `gorm:"uniqueIndex;not null;size:191"`
	PlanSlug    string                        `gorm:"not null;size:64;index"`
	Status      string                        `gorm:"not null;size:20"`
	ExternalRef string                        `gorm:"size:191;index"`
	CustomerRef string                        `gorm:"size:191;index"`
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Limits      datatypes.JSONType[QuotaJSON] `gorm:"column:limits_json;not null"`
	LastEventID string                        `gorm:"size:191"`
	LastEventAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}
