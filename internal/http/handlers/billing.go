package handlers

import (
	"io"
	"net/http"

	"lettergen/internal/billing"
)

// Stripe invoice events with many line items run well past 64KB; cap at 1MiB
// so a legitimate payload is never truncated into a signature failure.
const maxWebhookBytes = 1 << 20

// CreateCheckoutSession starts a paid checkout for the caller.
func (a *App) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ident := a.currentIdentity(r)
	if ident == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	if a.Stripe == nil {
		a.error(w, http.StatusInternalServerError, "not_configured", "billing is not configured")
		return
	}

	if _, err := a.Store.Ensure(r.Context(), ident.ID, ident.Email); err != nil {
		a.Logger.Error().Err(err).Str("user_id", ident.ID).Msg("ensure profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}

	url, customerID, err := a.Stripe.CreateCheckoutSession(r.Context(), ident.ID, ident.Email)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", ident.ID).Msg("checkout session failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create checkout session")
		return
	}
	if customerID != "" {
		if err := a.Store.LinkCustomer(r.Context(), ident.ID, customerID); err != nil {
			a.Logger.Warn().Err(err).Str("user_id", ident.ID).Msg("customer link failed")
		}
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}

// StripeSuccess is the checkout landing redirect. It reconciles the session
// and always sends the browser back to the site; reconciliation problems are
// repaired later by webhooks or polling, not surfaced to the user here.
func (a *App) StripeSuccess(w http.ResponseWriter, r *http.Request) {
	target := a.Config.SiteURL + "/?checkout=success"

	sessionID := r.URL.Query().Get("session_id")
	if a.Stripe == nil || sessionID == "" {
		http.Redirect(w, r, a.Config.SiteURL, http.StatusFound)
		return
	}

	ev, err := a.Stripe.ResolveCheckoutSession(r.Context(), sessionID)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", sessionID).Msg("checkout session lookup failed")
		http.Redirect(w, r, a.Config.SiteURL+"/?checkout=pending", http.StatusFound)
		return
	}
	if err := a.Reconciler.Apply(r.Context(), ev); err != nil {
		a.Logger.Error().Err(err).Str("session_id", sessionID).Msg("checkout reconciliation failed")
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// StripeWebhook receives provider A events.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Stripe == nil {
		a.error(w, http.StatusInternalServerError, "not_configured", "stripe webhook is not configured")
		return
	}
	a.handleWebhook(w, r, a.Stripe, r.Header.Get("Stripe-Signature"))
}

// LemonWebhook receives provider B events.
func (a *App) LemonWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Lemon == nil {
		a.error(w, http.StatusInternalServerError, "not_configured", "lemon squeezy webhook is not configured")
		return
	}
	a.handleWebhook(w, r, a.Lemon, r.Header.Get("X-Signature"))
}

// handleWebhook is the shared path for both providers: verify, normalize,
// reconcile. Once an event is verified it is acknowledged with 200 even when
// it matches no local user; the provider cannot retry more usefully and
// erroring only causes redelivery storms.
func (a *App) handleWebhook(w http.ResponseWriter, r *http.Request, provider billing.Provider, signature string) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read payload")
		return
	}

	ev, err := provider.ParseWebhook(payload, signature)
	if err != nil {
		a.Logger.Warn().Err(err).Str("provider", provider.Name()).Msg("webhook rejected")
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook verification failed")
		return
	}
	if ev == nil {
		a.json(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := a.Reconciler.Apply(r.Context(), ev); err != nil {
		a.Logger.Error().Err(err).Str("provider", provider.Name()).Str("event", ev.Type).Msg("webhook reconciliation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to apply event")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
