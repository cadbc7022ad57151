package handlers

import (
	"context"
	"net/http"
	"time"
)

// PublicConfig returns the client-side configuration. The anon key is public
// by design; everything else stays server-side.
func (a *App) PublicConfig(w http.ResponseWriter, _ *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"supabase_url":      a.Config.SupabaseURL,
		"supabase_anon_key": a.Config.SupabaseAnonKey,
		"lemon_store_url":   a.Config.LemonStoreURL,
	})
}

// Diag reports masked configuration and connectivity probes for operators.
func (a *App) Diag(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbOK := false
	if a.DB != nil {
		dbOK = a.DB.Ping(ctx) == nil
	}

	a.json(w, http.StatusOK, map[string]any{
		"env":                    a.Config.AppEnv,
		"database":               map[string]any{"configured": a.Config.DatabaseURL != "", "reachable": dbOK},
		"supabase_url":           a.Config.SupabaseURL,
		"stripe_secret_key":      mask(a.Config.StripeSecretKey),
		"stripe_webhook_secret":  mask(a.Config.StripeWebhookSecret),
		"stripe_price_id":        a.Config.StripePriceID,
		"lemon_webhook_secret":   mask(a.Config.LemonWebhookSecret),
		"generation_backend_url": a.Config.GenerationBackendURL,
		"direct_api_key":         mask(a.Config.DirectAPIKey),
		"direct_model":           a.Config.DirectModel,
		"local_fallback":         a.Config.EnableLocalFallback,
		"site_url":               a.Config.SiteURL,
	})
}

// mask keeps enough of a secret to recognize which one is set.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-2:]
}
