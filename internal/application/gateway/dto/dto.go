package dto

import (
	"time"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/domain/user"
)

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type LimitsDTO struct {
	PeriodType   string `json:"periodType"`
	Limit        int    `json:"limit"`
	BatchCeiling int    `json:"batchCeiling"`
}

type UsageDTO struct {
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	PeriodKey string `json:"periodKey"`
}

type SubscriptionDTO struct {
	Plan      string              `json:"plan"`
	Status    string              `json:"status"`
	Limits    LimitsDTO           `json:"limits"`
	Features  []string            `json:"features"`
	Usage     map[string]UsageDTO `json:"usage"`
	PeriodEnd *time.Time          `json:"periodEnd,omitempty"`
}

type UserInfoDTO struct {
	User         UserDTO         `json:"user"`
	Subscription SubscriptionDTO `json:"subscription"`
}

// SessionExchangeDTO is the GET /auth response body.
type SessionExchangeDTO struct {
	Authenticated bool       `json:"authenticated"`
	Token         string     `json:"token,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	User          *UserDTO   `json:"user,omitempty"`
	LoginURL      string     `json:"loginUrl,omitempty"`
}

type TrackUsageDTO struct {
	Success   bool  `json:"success"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

func ToUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:    u.Subject(),
		Email: u.Email(),
		Name:  u.Name(),
	}
}

func ToLimitsDTO(q vo.Quota) LimitsDTO {
	return LimitsDTO{
		PeriodType:   string(q.PeriodType),
		Limit:        q.Limit,
		BatchCeiling: q.BatchCeiling,
	}
}

func ToSubscriptionDTO(sub *subscription.Subscription, features vo.Features, usage map[string]UsageDTO) SubscriptionDTO {
	if features == nil {
		features = vo.Features{}
	}
	return SubscriptionDTO{
		Plan:      sub.PlanSlug(),
		Status:    sub.Status().String(),
		Limits:    ToLimitsDTO(sub.Quota()),
		Features:  features,
		Usage:     usage,
		PeriodEnd: sub.PeriodEnd(),
	}
}
