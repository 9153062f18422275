package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/repolens/gatekeeper/internal/shared/constants"
)

// QuotaJSON is the stored form of a quota, shared by plans and the
// subscription snapshot.
type QuotaJSON struct {
	PeriodType   string `json:"periodType"`
	Limit        int    `json:"limit"`
	BatchCeiling int    `json:"batchCeiling"`
}

type PlanModel struct {
	ID            uint                          `gorm:"primarykey"`
	Slug          string                        `gorm:"uniqueIndex;not null;size:64"`
	Name          string                        `gorm:"not null;size:100"`
	Limits        datatypes.JSONType[QuotaJSON] `gorm:"column:limits_json;not null"`
	Features      datatypes.JSONSlice[string]   `gorm:"column:features_json"`
	Active        bool                          `gorm:"not null;default:true"`
	SortOrder     int                           `gorm:"not null;default:0"`
	StripePriceID *string                       `gorm:"size:191;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (PlanModel) TableName() string {
	return constants.TablePlans
}
