package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	gostripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/repolens/gatekeeper/internal/domain/billing"
	"github.com/repolens/gatekeeper/internal/shared/config"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// ErrNotConfigured is returned by every API call when no secret key is set.
var ErrNotConfigured = errors.New("stripe is not configured")

// Client wraps the Stripe API for checkout, portal and event replay.
type Client struct {
	api    *client.API
	cfg    config.StripeConfig
	logger logger.Interface
}

func NewClient(cfg config.StripeConfig, logger logger.Interface) *Client {
	c := &Client{cfg: cfg, logger: logger}
	if cfg.SecretKey != "" {
		c.api = client.New(cfg.SecretKey, nil)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c.api != nil
}

// CreateCustomer creates a Stripe customer tagged with the subject so support
// can find users from the dashboard.
func (c *Client) CreateCustomer(ctx context.Context, subject, email, name string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	params := &gostripe.CustomerParams{
		Metadata: map[string]string{"subject": subject},
	}
	if email != "" {
		params.Email = gostripe.String(email)
	}
	if name != "" {
		params.Name = gostripe.String(name)
	}
	params.Context = ctx

	cust, err := c.api.Customers.New(params)
	if err != nil {
		c.logger.Errorw("stripe customer create failed", "error", err, "subject", subject)
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for one price.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID, planSlug string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	params := &gostripe.CheckoutSessionParams{
		Mode:     gostripe.String(string(gostripe.CheckoutSessionModeSubscription)),
		Customer: gostripe.String(customerID),
		LineItems: []*gostripe.CheckoutSessionLineItemParams{
			{
				Price:    gostripe.String(priceID),
				Quantity: gostripe.Int64(1),
			},
		},
		SubscriptionData: &gostripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"plan": planSlug},
		},
		SuccessURL: gostripe.String(c.cfg.SuccessURL),
		CancelURL:  gostripe.String(c.cfg.CancelURL),
	}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		c.logger.Errorw("stripe checkout session failed", "error", err, "customer_ref", customerID)
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	params := &gostripe.BillingPortalSessionParams{
		Customer:  gostripe.String(customerID),
		ReturnURL: gostripe.String(c.cfg.PortalReturnURL),
	}
	params.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		c.logger.Errorw("stripe portal session failed", "error", err, "customer_ref", customerID)
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// ListEvents replays handled events created at or after since, oldest
// first, through fn. Stripe keeps events for 30 days.
func (c *Client) ListEvents(ctx context.Context, since time.Time, fn func(*billing.Event) error) error {
	if c.api == nil {
		return ErrNotConfigured
	}

	params := &gostripe.EventListParams{
		CreatedRange: &gostripe.RangeQueryParams{GreaterThanOrEqual: since.Unix()},
		Types:        gostripe.StringSlice(HandledEventTypes),
	}
	params.Context = ctx
	params.Limit = gostripe.Int64(100)

	// Stripe lists newest first.
	var events []*billing.Event
	iter := c.api.Events.List(params)
	for iter.Next() {
		ev, err := Translate(iter.Event())
		if err != nil {
			c.logger.Warnw("skipping untranslatable stripe event", "error", err, "event_id", iter.Event().ID)
			continue
		}
		events = append(events, ev)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("list stripe events: %w", err)
	}

	for i := len(events) - 1; i >= 0; i-- {
		if err := fn(events[i]); err != nil {
			return err
		}
	}
	return nil
}
