// Package stripe adapts the Stripe API to the gateway's billing ports.
package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	gostripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/repolens/gatekeeper/internal/domain/billing"
)

const (
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
	eventPaymentSucceeded    = "invoice.payment_succeeded"
	eventPaymentFailed       = "invoice.payment_failed"
)

// HandledEventTypes are the Stripe event types the synchronizer acts on.
var HandledEventTypes = []string{
	eventSubscriptionCreated,
	eventSubscriptionUpdated,
	eventSubscriptionDeleted,
	eventPaymentSucceeded,
	eventPaymentFailed,
}

// WebhookVerifier checks Stripe-Signature headers against the endpoint secret.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify authenticates payload and translates it. A bad signature, stale
// timestamp or missing secret yields billing.ErrSignatureInvalid.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (*billing.Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", billing.ErrSignatureInvalid)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrSignatureInvalid, err)
	}

	return Translate(&event)
}

// Translate maps a Stripe event onto billing.Event. Unknown types come back
// with Kind == billing.KindIgnored.
func Translate(e *gostripe.Event) (*billing.Event, error) {
	out := &billing.Event{
		ID:         e.ID,
		Type:       string(e.Type),
		Kind:       billing.KindIgnored,
		OccurredAt: time.Unix(e.Created, 0).UTC(),
	}
	if e.Data == nil {
		return out, nil
	}

	switch out.Type {
	case eventSubscriptionCreated, eventSubscriptionUpdated, eventSubscriptionDeleted:
		var sub gostripe.Subscription
		if err := json.Unmarshal(e.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", billing.ErrMalformedEvent, err)
		}
		switch out.Type {
		case eventSubscriptionCreated:
			out.Kind = billing.KindSubscriptionCreated
		case eventSubscriptionUpdated:
			out.Kind = billing.KindSubscriptionUpdated
		default:
			out.Kind = billing.KindSubscriptionDeleted
		}
		fillFromSubscription(out, &sub)

	case eventPaymentSucceeded, eventPaymentFailed:
		var inv gostripe.Invoice
		if err := json.Unmarshal(e.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: invoice: %v", billing.ErrMalformedEvent, err)
		}
		if out.Type == eventPaymentSucceeded {
			out.Kind = billing.KindPaymentSucceeded
		} else {
			out.Kind = billing.KindPaymentFailed
		}
		fillFromInvoice(out, &inv)
	}

	if out.Kind != billing.KindIgnored && out.CustomerRef == "" {
		return nil, fmt.Errorf("%w: %s without customer", billing.ErrMalformedEvent, out.Type)
	}
	return out, nil
}

func fillFromSubscription(out *billing.Event, sub *gostripe.Subscription) {
	out.SubscriptionRef = sub.ID
	out.Status = billing.ProviderStatus(sub.Status)
	if sub.Customer != nil {
		out.CustomerRef = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceRef = sub.Items.Data[0].Price.ID
	}
	if sub.Metadata != nil {
		out.PlanHint = sub.Metadata["plan"]
	}
	out.PeriodStart = unixPtr(sub.CurrentPeriodStart)
	out.PeriodEnd = unixPtr(sub.CurrentPeriodEnd)
}

func fillFromInvoice(out *billing.Event, inv *gostripe.Invoice) {
	if inv.Customer != nil {
		out.CustomerRef = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionRef = inv.Subscription.ID
	}
	// The subscription line carries the service period; the invoice's own
	// period is the billing window that just closed.
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Period != nil && line.Period.End > 0 {
				out.PeriodStart = unixPtr(line.Period.Start)
				out.PeriodEnd = unixPtr(line.Period.End)
				break
			}
		}
	}
	if out.PeriodEnd == nil {
		out.PeriodStart = unixPtr(inv.PeriodStart)
		out.PeriodEnd = unixPtr(inv.PeriodEnd)
	}
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
