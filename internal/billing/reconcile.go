package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lettergen/internal/domain"
)

// Reconciler derives the canonical entitlement tuple from normalized provider
// events and writes it to the profile store. It is the single writer of
// entitlement fields; webhook handlers, the success redirect, and on-demand
// polling all go through Apply.
type Reconciler struct {
	store domain.ProfileStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewReconciler wires the reconciler to a profile store.
func NewReconciler(store domain.ProfileStore, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log, now: time.Now}
}

// Apply resolves the event to a local profile and upserts the entitlement
// tuple. An event that matches no profile is acknowledged as a no-op: the
// provider cannot retry any more usefully, so returning an error would only
// cause a redelivery storm. Applying the same event twice changes nothing
// beyond the updated_at timestamp.
func (r *Reconciler) Apply(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}

	profile, err := r.resolve(ctx, ev)
	if err != nil {
		return fmt.Errorf("resolve profile for %s event: %w", ev.Provider, err)
	}
	if profile == nil {
		r.log.Warn().
			Str("provider", ev.Provider).
			Str("event", ev.Type).
			Str("customer_id", ev.CustomerID).
			Str("subscription_id", ev.SubscriptionID).
			Msg("billing event matched no profile, acknowledging")
		return nil
	}

	status, isPro := NormalizeStatus(ev.Status, ev.CurrentPeriodEnd, r.now())

	ent := domain.Entitlement{
		IsPro:            isPro,
		Status:           status,
		CurrentPeriodEnd: ev.CurrentPeriodEnd,
		PlanID:           ev.PlanID,
		CustomerID:       ev.CustomerID,
		SubscriptionID:   ev.SubscriptionID,
	}
	if err := r.store.UpdateEntitlement(ctx, profile.ID, ent); err != nil {
		return fmt.Errorf("update entitlement for %s: %w", profile.ID, err)
	}

	r.log.Info().
		Str("provider", ev.Provider).
		Str("event", ev.Type).
		Str("profile_id", profile.ID).
		Str("status", status).
		Bool("is_pro", isPro).
		Msg("entitlement reconciled")
	return nil
}

// resolve finds the profile an event refers to. Precedence: explicit
// reference id from the checkout flow, then email (case-insensitive), then
// stored customer id, then stored subscription id. First match wins.
func (r *Reconciler) resolve(ctx context.Context, ev *Event) (*domain.Profile, error) {
	lookups := []func(context.Context) (*domain.Profile, error){
		func(ctx context.Context) (*domain.Profile, error) {
			if ev.RefID == "" {
				return nil, domain.ErrNotFound
			}
			return r.store.GetByID(ctx, ev.RefID)
		},
		func(ctx context.Context) (*domain.Profile, error) {
			if ev.Email == "" {
				return nil, domain.ErrNotFound
			}
			return r.store.GetByEmail(ctx, ev.Email)
		},
		func(ctx context.Context) (*domain.Profile, error) {
			if ev.CustomerID == "" {
				return nil, domain.ErrNotFound
			}
			return r.store.GetByCustomerID(ctx, ev.CustomerID)
		},
		func(ctx context.Context) (*domain.Profile, error) {
			if ev.SubscriptionID == "" {
				return nil, domain.ErrNotFound
			}
			return r.store.GetBySubscriptionID(ctx, ev.SubscriptionID)
		},
	}

	for _, lookup := range lookups {
		profile, err := lookup(ctx)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
