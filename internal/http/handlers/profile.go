package handlers

import (
	"net/http"
	"time"

	"lettergen/internal/domain"
	"lettergen/internal/quota"
)

type profileDTO struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	IsPro              bool       `json:"is_pro"`
	SubscriptionStatus string     `json:"subscription_status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	PlanID             string     `json:"plan_id"`
	GenerationsUsed    int        `json:"generations_used"`
	FreeRemaining      int        `json:"free_remaining"`
	HasResume          bool       `json:"has_resume"`
}

func toProfileDTO(p *domain.Profile) profileDTO {
	d := quota.Evaluate(p.GenerationsUsed, p.IsPro, p.SubscriptionStatus)
	return profileDTO{
		ID:                 p.ID,
		Email:              p.Email,
		IsPro:              p.IsPro,
		SubscriptionStatus: p.SubscriptionStatus,
		CurrentPeriodEnd:   p.CurrentPeriodEnd,
		PlanID:             p.PlanID,
		GenerationsUsed:    p.GenerationsUsed,
		FreeRemaining:      d.FreeRemaining,
		HasResume:          p.ResumeHash != "",
	}
}

// EnsureProfile creates the caller's profile if it does not exist yet.
// Idempotent; the frontend calls it right after sign-in.
func (a *App) EnsureProfile(w http.ResponseWriter, r *http.Request) {
	ident := a.currentIdentity(r)
	if ident == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	profile, err := a.Store.Ensure(r.Context(), ident.ID, ident.Email)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", ident.ID).Msg("ensure profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create profile")
		return
	}
	a.json(w, http.StatusOK, toProfileDTO(profile))
}

// Profile returns the caller's profile, repairing subscription drift from
// Stripe on the way when no webhook has arrived yet or the last known paid
// period has elapsed. The repair is best-effort: a failed poll never fails
// the read.
func (a *App) Profile(w http.ResponseWriter, r *http.Request) {
	ident := a.currentIdentity(r)
	if ident == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	profile, err := a.Store.Ensure(r.Context(), ident.ID, ident.Email)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", ident.ID).Msg("load profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}

	if a.Stripe != nil && needsRefresh(profile, time.Now()) {
		if ev, err := a.Stripe.Refresh(r.Context(), profile); err != nil {
			a.Logger.Debug().Err(err).Str("user_id", ident.ID).Msg("subscription poll failed")
		} else if ev != nil {
			ev.RefID = profile.ID
			if err := a.Reconciler.Apply(r.Context(), ev); err != nil {
				a.Logger.Warn().Err(err).Str("user_id", ident.ID).Msg("drift repair failed")
			} else if refreshed, err := a.Store.GetByID(r.Context(), profile.ID); err == nil {
				profile = refreshed
			}
		}
	}

	a.json(w, http.StatusOK, toProfileDTO(profile))
}

// needsRefresh reports whether the profile's entitlement should be re-polled.
// Unsubscribed profiles may have missed an activating webhook; subscribed
// profiles whose paid period has elapsed may have missed the terminating one.
// A cancelled subscription kept alive by the grace rule falls in the second
// bucket: Stripe sends nothing further after the deletion event, so only a
// poll can revoke it.
func needsRefresh(p *domain.Profile, now time.Time) bool {
	if !p.Subscribed() {
		return true
	}
	return p.CurrentPeriodEnd != nil && p.CurrentPeriodEnd.Before(now)
}
