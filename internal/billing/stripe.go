package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"lettergen/internal/domain"
)

// StripeConfig holds the Stripe integration settings.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SiteURL       string
}

// StripeProvider implements Provider for Stripe and additionally serves
// checkout-session creation, success-redirect resolution, and on-demand
// polling, which only this provider supports.
type StripeProvider struct {
	api    *client.API
	config StripeConfig
}

// NewStripeProvider builds the Stripe integration.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeProvider{api: api, config: cfg}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

// CreateCheckoutSession starts a subscription checkout for the given user and
// returns the hosted checkout URL plus the Stripe customer id the session was
// created for. The user id rides along as the client reference so the
// completed-session webhook can be correlated without an email match; the
// customer id is ensured up front so later webhooks correlate even when the
// buyer checks out with a different email.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, userID, email string) (string, string, error) {
	if p.config.PriceID == "" {
		return "", "", errors.New("stripe price id is not configured")
	}

	customerID, err := p.ensureCustomer(ctx, email)
	if err != nil {
		return "", "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.config.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.config.SiteURL + "/api/stripe/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.config.SiteURL + "/?checkout=canceled"),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	} else if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, customerID, nil
}

// ensureCustomer finds or creates the Stripe customer for an email.
func (p *StripeProvider) ensureCustomer(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", nil
	}

	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)
	iter := p.api.Customers.List(listParams)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list customers: %w", err)
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

// ResolveCheckoutSession turns a just-completed checkout session into an
// Event for the success-page landing.
func (p *StripeProvider) ResolveCheckoutSession(ctx context.Context, sessionID string) (*Event, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("customer")

	sess, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout session: %w", err)
	}

	ev := &Event{
		Provider: p.Name(),
		Type:     "checkout",
		RefID:    sess.ClientReferenceID,
		Email:    sess.CustomerEmail,
	}
	if sess.CustomerDetails != nil && ev.Email == "" {
		ev.Email = sess.CustomerDetails.Email
	}
	if sess.Customer != nil {
		ev.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		ev.SubscriptionID = sess.Subscription.ID
		fillFromSubscription(ev, sess.Subscription)
	} else {
		// Payment-mode or still-settling sessions carry no subscription;
		// treat completion itself as activation.
		ev.Status = "active"
	}
	return ev, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the
// subscription-relevant event types. Other event types return (nil, nil).
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if p.config.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify stripe webhook: %w", err)
	}

	ev := &Event{Provider: p.Name(), Type: string(event.Type)}

	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		ev.RefID = sess.ClientReferenceID
		ev.Email = sess.CustomerEmail
		if sess.CustomerDetails != nil && ev.Email == "" {
			ev.Email = sess.CustomerDetails.Email
		}
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		ev.Status = "active"

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev.SubscriptionID = sub.ID
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		fillFromSubscription(ev, &sub)
		if string(event.Type) == "customer.subscription.deleted" {
			ev.Status = "canceled"
		}

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			ev.SubscriptionID = inv.Subscription.ID
		}
		ev.Email = inv.CustomerEmail
		if string(event.Type) == "invoice.payment_succeeded" {
			ev.Status = "active"
			if inv.PeriodEnd > 0 {
				end := time.Unix(inv.PeriodEnd, 0).UTC()
				ev.CurrentPeriodEnd = &end
			}
		} else {
			ev.Status = "past_due"
		}

	default:
		// Structurally valid, verified, but not subscription-relevant.
		return nil, nil
	}

	return ev, nil
}

// Refresh polls Stripe for the current subscription state of a profile,
// using whichever identifier the profile has: subscription id, customer id,
// or email, in that order. Returns (nil, nil) when nothing can be looked up.
func (p *StripeProvider) Refresh(ctx context.Context, profile *domain.Profile) (*Event, error) {
	switch {
	case profile.StripeSubscriptionID != "":
		params := &stripe.SubscriptionParams{}
		params.Context = ctx
		sub, err := p.api.Subscriptions.Get(profile.StripeSubscriptionID, params)
		if err != nil {
			return nil, fmt.Errorf("fetch subscription: %w", err)
		}
		return p.eventFromSubscription(sub), nil

	case profile.StripeCustomerID != "":
		return p.latestForCustomer(ctx, profile.StripeCustomerID)

	case profile.Email != "":
		listParams := &stripe.CustomerListParams{Email: stripe.String(profile.Email)}
		listParams.Context = ctx
		iter := p.api.Customers.List(listParams)
		for iter.Next() {
			ev, err := p.latestForCustomer(ctx, iter.Customer().ID)
			if err != nil || ev != nil {
				return ev, err
			}
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("list customers: %w", err)
		}
		return nil, nil

	default:
		return nil, nil
	}
}

func (p *StripeProvider) latestForCustomer(ctx context.Context, customerID string) (*Event, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		return p.eventFromSubscription(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return nil, nil
}

func (p *StripeProvider) eventFromSubscription(sub *stripe.Subscription) *Event {
	ev := &Event{
		Provider:       p.Name(),
		Type:           "poll",
		SubscriptionID: sub.ID,
	}
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	fillFromSubscription(ev, sub)
	return ev
}

func fillFromSubscription(ev *Event, sub *stripe.Subscription) {
	ev.Status = string(sub.Status)
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		ev.CurrentPeriodEnd = &end
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ev.PlanID = sub.Items.Data[0].Price.ID
	}
}
