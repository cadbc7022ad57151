package domain

import "time"

// Subscription statuses stored on a profile. Payment providers report more
// states than these; unknown values are stored verbatim and treated as
// not entitled.
const (
	StatusNone     = "none"
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusUnpaid   = "unpaid"
)

// Profile is the per-user row holding entitlement, usage, and resume-cache
// state. Exactly one exists per authenticated identity; it is created lazily
// on the first authenticated request.
type Profile struct {
	ID                   string
	Email                string
	IsPro                bool
	SubscriptionStatus   string
	CurrentPeriodEnd     *time.Time
	PlanID               string
	StripeCustomerID     string
	StripeSubscriptionID string
	GenerationsUsed      int
	ResumeHash           string
	ResumeSummary        string
	ResumeUpdatedAt      *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Subscribed reports whether the profile currently has a paid entitlement.
func (p Profile) Subscribed() bool {
	return p.IsPro && (p.SubscriptionStatus == StatusActive || p.SubscriptionStatus == StatusTrialing)
}

// Entitlement is the canonical subscription tuple written by reconciliation.
// Empty linkage fields leave the stored values untouched so partial signals
// (an invoice without a plan id, say) never erase what an earlier event set.
type Entitlement struct {
	IsPro            bool
	Status           string
	CurrentPeriodEnd *time.Time
	PlanID           string
	CustomerID       string
	SubscriptionID   string
}

// GenerationLog is one append-only row per generation attempt, successful or
// not. Diagnostic only; never read back by the service.
type GenerationLog struct {
	ID        string
	ProfileID string
	Success   bool
	UsedAt    int
	Error     string
	CreatedAt time.Time
}
