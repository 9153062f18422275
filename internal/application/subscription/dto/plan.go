package dto

import (
	"time"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
)

type PlanDTO struct {
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	PeriodType    string    `json:"periodType"`
	Limit         int       `json:"limit"`
	BatchCeiling  int       `json:"batchCeiling"`
	Features      []string  `json:"features"`
	Active        bool      `json:"active"`
	SortOrder     int       `json:"sortOrder"`
	StripePriceID string    `json:"stripePriceId,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func ToPlanDTO(p *subscription.Plan) PlanDTO {
	q := p.Quota()
	features := []string(p.Features())
	if features == nil {
		features = []string{}
	}
	return PlanDTO{
		Slug:          p.Slug(),
		Name:          p.Name(),
		PeriodType:    string(q.PeriodType),
		Limit:         q.Limit,
		BatchCeiling:  q.BatchCeiling,
		Features:      features,
		Active:        p.IsActive(),
		SortOrder:     p.SortOrder(),
		StripePriceID: p.StripePriceID(),
		UpdatedAt:     p.UpdatedAt(),
	}
}

func ToPlanDTOs(plans []*subscription.Plan) []PlanDTO {
	out := make([]PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, ToPlanDTO(p))
	}
	return out
}
