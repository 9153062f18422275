package usecases

import (
	"context"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/billing"
)

// Provider is the billing provider's outbound API.
type Provider interface {
	CreateCustomer(ctx context.Context, subject, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, planSlug string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	ListEvents(ctx context.Context, since time.Time, fn func(*billing.Event) error) error
}

// EventProcessor applies one verified billing event.
type EventProcessor interface {
	Process(ctx context.Context, ev *billing.Event) error
}
