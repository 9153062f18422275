package stripe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/repolens/gatekeeper/internal/domain/billing"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func subscriptionEvent(eventType, status string) string {
	return fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "type": %q,
  "created": 1767225600,
  "data": {"object": {
    "id": "sub_1",
    "object": "subscription",
    "customer": "cus_1",
    "status": %q,
    "current_period_start": 1767225600,
    "current_period_end": 1769904000,
    "metadata": {"plan": "pro"},
    "items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "price": {"id": "price_Pro", "object": "price"}}]}
  }}
}`, eventType, status)
}

func TestWebhookVerifier_Subscription(t *testing.T) {
	v := NewWebhookVerifier(testSecret)
	payload := subscriptionEvent("customer.subscription.created", "trialing")

	ev, err := v.Verify([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, billing.KindSubscriptionCreated, ev.Kind)
	assert.Equal(t, "cus_1", ev.CustomerRef)
	assert.Equal(t, "sub_1", ev.SubscriptionRef)
	assert.Equal(t, "price_Pro", ev.PriceRef)
	assert.Equal(t, "pro", ev.PlanHint)
	assert.Equal(t, billing.ProviderStatus("trialing"), ev.Status)
	require.NotNil(t, ev.PeriodEnd)
	assert.Equal(t, time.Unix(1769904000, 0).UTC(), *ev.PeriodEnd)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), ev.OccurredAt)
}

func TestWebhookVerifier_RejectsBadSignature(t *testing.T) {
	v := NewWebhookVerifier(testSecret)
	payload := subscriptionEvent("customer.subscription.updated", "active")

	_, err := v.Verify([]byte(payload), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, billing.ErrSignatureInvalid)

	header := sign(t, payload)
	_, err = v.Verify([]byte(payload+" "), header)
	assert.ErrorIs(t, err, billing.ErrSignatureInvalid, "tampered body")

	_, err = NewWebhookVerifier("").Verify([]byte(payload), header)
	assert.ErrorIs(t, err, billing.ErrSignatureInvalid)
}

func TestWebhookVerifier_Invoice(t *testing.T) {
	v := NewWebhookVerifier(testSecret)
	payload := `{
  "id": "evt_2",
  "object": "event",
  "type": "invoice.payment_failed",
  "created": 1767225600,
  "data": {"object": {
    "id": "in_1",
    "object": "invoice",
    "customer": "cus_1",
    "subscription": "sub_1",
    "period_start": 1764547200,
    "period_end": 1767225600,
    "lines": {"object": "list", "data": [{"id": "il_1", "object": "line_item", "period": {"start": 1767225600, "end": 1769904000}}]}
  }}
}`

	ev, err := v.Verify([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, billing.KindPaymentFailed, ev.Kind)
	assert.Equal(t, "sub_1", ev.SubscriptionRef)
	require.NotNil(t, ev.PeriodStart)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), *ev.PeriodStart)
}

func TestWebhookVerifier_IgnoresOtherTypes(t *testing.T) {
	v := NewWebhookVerifier(testSecret)
	payload := `{"id":"evt_3","object":"event","type":"charge.refunded","created":1767225600,"data":{"object":{"id":"ch_1","object":"charge"}}}`

	ev, err := v.Verify([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, billing.KindIgnored, ev.Kind)
}

func TestTranslate_RequiresCustomer(t *testing.T) {
	v := NewWebhookVerifier(testSecret)
	payload := `{"id":"evt_4","object":"event","type":"customer.subscription.deleted","created":1767225600,"data":{"object":{"id":"sub_1","object":"subscription","status":"canceled"}}}`

	_, err := v.Verify([]byte(payload), sign(t, payload))
	assert.ErrorIs(t, err, billing.ErrMalformedEvent)
}
