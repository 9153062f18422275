package subscription

import (
	"fmt"
	"time"

	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	"github.com/repolens/gatekeeper/internal/shared/constants"
)

// Plan is a named bundle of usage limits and feature flags.
type Plan struct {
	id            uint
	slug          string
	name          string
	quota         vo.Quota
	features      vo.Features
	active        bool
	sortOrder     int
	stripePriceID string
	createdAt     time.Time
	updatedAt     time.Time
}

func NewPlan(slug, name string, quota vo.Quota, features vo.Features) (*Plan, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidPlan)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if len(slug) > 64 || len(name) > 100 {
		return nil, fmt.Errorf("%w: slug or name too long", ErrInvalidPlan)
	}
	if err := quota.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Plan{
		slug:      slug,
		name:      name,
		quota:     quota,
		features:  features,
		active:    true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructPlan(id uint, slug, name string, quota vo.Quota, features vo.Features,
	active bool, sortOrder int, stripePriceID string, createdAt, updatedAt time.Time) (*Plan, error) {
	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if err := quota.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", slug, err)
	}
	return &Plan{
		id:            id,
		slug:          slug,
		name:          name,
		quota:         quota,
		features:      features,
		active:        active,
		sortOrder:     sortOrder,
		stripePriceID: stripePriceID,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}, nil
}

func (p *Plan) ID() uint {
	return p.id
}

func (p *Plan) Slug() string {
	return p.slug
}

func (p *Plan) Name() string {
	return p.name
}

func (p *Plan) Quota() vo.Quota {
	return p.quota
}

func (p *Plan) Features() vo.Features {
	return p.features
}

func (p *Plan) IsActive() bool {
	return p.active
}

func (p *Plan) SortOrder() int {
	return p.sortOrder
}

func (p *Plan) StripePriceID() string {
	return p.stripePriceID
}

func (p *Plan) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Plan) UpdatedAt() time.Time {
	return p.updatedAt
}

func (p *Plan) IsDefault() bool {
	return p.slug == constants.DefaultPlanSlug
}

func (p *Plan) SetID(id uint) {
	p.id = id
}

func (p *Plan) SetSortOrder(order int) {
	p.sortOrder = order
	p.touch()
}

func (p *Plan) SetStripePriceID(s string) {
	p.stripePriceID = s
	p.touch()
}

func (p *Plan) Rename(name string) error {
	if name == "" || len(name) > 100 {
		return fmt.Errorf("%w: invalid name", ErrInvalidPlan)
	}
	p.name = name
	p.touch()
	return nil
}

// ChangeQuota replaces the plan's limits. Existing subscriptions keep their
// snapshot until their next billing sync.
func (p *Plan) ChangeQuota(q vo.Quota) error {
	if err := q.Validate(); err != nil {
		return err
	}
	p.quota = q
	p.touch()
	return nil
}

func (p *Plan) SetFeatures(f vo.Features) {
	p.features = f
	p.touch()
}

// SetActive toggles availability for new checkouts. The default plan cannot
// be deactivated.
func (p *Plan) SetActive(active bool) error {
	if !active && p.IsDefault() {
		return fmt.Errorf("%w: the default plan must stay active", ErrInvalidPlan)
	}
	p.active = active
	p.touch()
	return nil
}

func (p *Plan) touch() {
	p.updatedAt = time.Now().UTC()
}
