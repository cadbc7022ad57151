package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LemonProvider implements Provider for Lemon Squeezy. There is no official
// Go SDK; webhooks are a JSON:API payload signed with a hex-encoded
// HMAC-SHA256 of the raw body in the X-Signature header.
type LemonProvider struct {
	webhookSecret string
}

// NewLemonProvider builds the Lemon Squeezy integration.
func NewLemonProvider(webhookSecret string) (*LemonProvider, error) {
	if webhookSecret == "" {
		return nil, errors.New("lemon squeezy webhook secret is required")
	}
	return &LemonProvider{webhookSecret: webhookSecret}, nil
}

func (p *LemonProvider) Name() string { return "lemonsqueezy" }

type lemonWebhook struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CustomerID json.Number `json:"customer_id"`
			ProductID  json.Number `json:"product_id"`
			VariantID  json.Number `json:"variant_id"`
			UserEmail  string      `json:"user_email"`
			Status     string      `json:"status"`
			RenewsAt   *time.Time  `json:"renews_at"`
			EndsAt     *time.Time  `json:"ends_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseWebhook verifies the X-Signature header and normalizes subscription
// events. Order events and other non-subscription types return (nil, nil).
func (p *LemonProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if err := p.verify(payload, signature); err != nil {
		return nil, err
	}

	var wh lemonWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return nil, fmt.Errorf("decode lemon webhook: %w", err)
	}

	switch wh.Meta.EventName {
	case "subscription_created", "subscription_updated", "subscription_resumed",
		"subscription_cancelled", "subscription_expired", "subscription_paused",
		"subscription_unpaused", "subscription_payment_success", "subscription_payment_failed":
	default:
		return nil, nil
	}

	attrs := wh.Data.Attributes
	ev := &Event{
		Provider:       p.Name(),
		Type:           wh.Meta.EventName,
		RefID:          wh.Meta.CustomData.UserID,
		Email:          attrs.UserEmail,
		CustomerID:     attrs.CustomerID.String(),
		SubscriptionID: wh.Data.ID,
		PlanID:         lemonPlanID(attrs.ProductID, attrs.VariantID),
		Status:         attrs.Status,
	}

	// The current paid period runs to renews_at while the subscription is
	// alive and to ends_at once it has been cancelled.
	if attrs.RenewsAt != nil {
		end := attrs.RenewsAt.UTC()
		ev.CurrentPeriodEnd = &end
	}
	if attrs.EndsAt != nil && (ev.CurrentPeriodEnd == nil || attrs.EndsAt.After(*ev.CurrentPeriodEnd)) {
		end := attrs.EndsAt.UTC()
		ev.CurrentPeriodEnd = &end
	}

	switch wh.Meta.EventName {
	case "subscription_payment_success":
		if ev.Status == "" {
			ev.Status = "active"
		}
	case "subscription_payment_failed":
		ev.Status = "past_due"
	case "subscription_expired":
		ev.Status = "unpaid"
	}

	return ev, nil
}

func (p *LemonProvider) verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errors.New("missing lemon squeezy signature")
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("malformed lemon squeezy signature: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return errors.New("lemon squeezy signature mismatch")
	}
	return nil
}

// Sign computes the webhook signature for a payload. Exposed for tests.
func (p *LemonProvider) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func lemonPlanID(productID, variantID json.Number) string {
	variant := variantID.String()
	if variant != "" && variant != "0" {
		return variant
	}
	product := productID.String()
	if product != "" && product != "0" {
		return product
	}
	return ""
}
