// Package billing normalizes payment-provider signals into the profile's
// canonical entitlement fields. Two provider integrations exist side by side,
// Stripe and Lemon Squeezy; both verify their own webhook signature scheme and
// produce the same Event shape, so reconciliation has a single code path.
package billing

import "time"

// Event is a payment-provider signal reduced to the fields reconciliation
// needs. Produced by webhook parsing, checkout-session resolution, and
// on-demand polling alike.
type Event struct {
	Provider string // "stripe" or "lemonsqueezy"
	Type     string // original provider event name, or "poll"/"checkout"

	// Identification, in resolution precedence order.
	RefID          string // reference id carried through the checkout flow
	Email          string
	CustomerID     string
	SubscriptionID string

	PlanID           string
	Status           string // raw provider status, not yet normalized
	CurrentPeriodEnd *time.Time
}

// Provider verifies and parses a webhook payload into a normalized Event.
// A nil Event with nil error means the event type carries no subscription
// signal and should be acknowledged without reconciliation.
type Provider interface {
	Name() string
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
