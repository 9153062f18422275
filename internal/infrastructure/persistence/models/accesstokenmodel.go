package models

import (
	"time"

	"github.com/repolens/gatekeeper/internal/shared/constants"
)

// AccessTokenModel stores issued bearer tokens keyed by the SHA-256 of the
// token value. Rows are never deleted.
type AccessTokenModel struct {
	ID         uint      `gorm:"primarykey"`
	Subject    string    `gorm:"not null;size:191;index:idx_access_token_subject"`
	TokenHash  string    `gorm:"uniqueIndex;not null;size:64"`
	IssuedAt   time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

func (AccessTokenModel) TableName() string {
	return constants.TableAccessTokens
}
