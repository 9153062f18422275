package models

import (
	"time"

	"github.com/repolens/gatekeeper/internal/shared/constants"
)

// UserModel is the identity table. BillingCustomerID is nullable so the
// unique index only applies to linked users.
type UserModel struct {
	ID                uint    `gorm:"primarykey"`
	Subject           string  `gorm:"uniqueIndex;not null;size:191"`
	Email             string  `gorm:"size:255;index"`
	Name              string  `gorm:"size:255"`
	BillingCustomerID *string `gorm:"uniqueIndex;size:191"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (UserModel) TableName() string {
	return constants.TableUsers
}
