// Package seeds loads plan definitions from YAML into the plan table.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// PlanFile is the layout of configs/plans.yaml.
type PlanFile struct {
	Plans []PlanSeed `yaml:"plans"`
}

type PlanSeed struct {
	Slug          string   `yaml:"slug"`
	Name          string   `yaml:"name"`
	PeriodType    string   `yaml:"period_type"`
	Limit         int      `yaml:"limit"`
	BatchCeiling  int      `yaml:"batch_ceiling"`
	Features      []string `yaml:"features"`
	Active        *bool    `yaml:"active"`
	SortOrder     int      `yaml:"sort_order"`
	StripePriceID string   `yaml:"stripe_price_id"`
}

type PlanUpserter interface {
	Upsert(ctx context.Context, plan *subscription.Plan) (bool, error)
}

type Result struct {
	Created int
	Updated int
}

func LoadPlanFile(path string) (*PlanFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParsePlanFile(raw)
}

// ParsePlanFile decodes and validates a plan file. The default plan must be
// present since every unsubscribed subject falls back to it.
func ParsePlanFile(raw []byte) (*PlanFile, error) {
	var f PlanFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}

	seen := make(map[string]bool, len(f.Plans))
	for _, p := range f.Plans {
		if seen[p.Slug] {
			return nil, fmt.Errorf("plan %q listed twice", p.Slug)
		}
		seen[p.Slug] = true
	}
	if !seen[constants.DefaultPlanSlug] {
		return nil, fmt.Errorf("plan file has no %q plan", constants.DefaultPlanSlug)
	}
	return &f, nil
}

func (s PlanSeed) toPlan() (*subscription.Plan, error) {
	quota, err := vo.NewQuota(vo.PeriodType(s.PeriodType), s.Limit, s.BatchCeiling)
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", s.Slug, err)
	}
	plan, err := subscription.NewPlan(s.Slug, s.Name, quota, vo.NewFeatures(s.Features...))
	if err != nil {
		return nil, err
	}
	if s.Active != nil {
		if err := plan.SetActive(*s.Active); err != nil {
			return nil, err
		}
	}
	plan.SetSortOrder(s.SortOrder)
	plan.SetStripePriceID(s.StripePriceID)
	return plan, nil
}

// SeedPlans upserts every plan in f. Running it twice leaves the same rows.
func SeedPlans(ctx context.Context, f *PlanFile, registry PlanUpserter, log logger.Interface) (Result, error) {
	var (
		res  Result
		errs []error
	)
	for _, s := range f.Plans {
		plan, err := s.toPlan()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created, err := registry.Upsert(ctx, plan)
		if err != nil {
			errs = append(errs, fmt.Errorf("plan %q: %w", s.Slug, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		log.Infow("plan seeded", "slug", s.Slug, "created", created)
	}
	return res, errors.Join(errs...)
}
