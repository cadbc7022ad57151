package domain

import "context"

// ProfileStore persists profiles and their append-only generation log.
// Implemented by repo.ProfileRepoPG; handlers and the billing reconciler
// depend on this interface so tests can substitute fakes.
type ProfileStore interface {
	// Ensure creates the profile for an identity if it does not exist and
	// returns the current row. Keyed by user id; safe to call on every request.
	Ensure(ctx context.Context, id, email string) (*Profile, error)

	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Profile, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Profile, error)

	// UpdateEntitlement writes the canonical subscription tuple. Applying the
	// same entitlement twice changes nothing but updated_at.
	UpdateEntitlement(ctx context.Context, id string, e Entitlement) error

	// LinkCustomer records the payment-provider customer id ahead of checkout
	// so later webhooks can be correlated back to this profile.
	LinkCustomer(ctx context.Context, id, customerID string) error

	// IncrementGenerations bumps the usage counter and returns the new value.
	IncrementGenerations(ctx context.Context, id string) (int, error)

	UpdateResumeCache(ctx context.Context, id, hash, summary string) error

	InsertGenerationLog(ctx context.Context, entry GenerationLog) error
}
