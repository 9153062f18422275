package subscription

import "context"

type PlanRepository interface {
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	GetByStripePriceID(ctx context.Context, priceID string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	Create(ctx context.Context, plan *Plan) error
	Update(ctx context.Context, plan *Plan) error
}

type SubscriptionRepository interface {
	// GetBySubject returns ErrSubscriptionNotFound when the subject has no row.
	GetBySubject(ctx context.Context, subject string) (*Subscription, error)
	// Save inserts or updates the row keyed by subject.
	Save(ctx context.Context, sub *Subscription) error
}
