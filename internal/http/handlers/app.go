package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"lettergen/internal/billing"
	"lettergen/internal/config"
	"lettergen/internal/domain"
	"lettergen/internal/genai"
	"lettergen/internal/identity"
	"lettergen/internal/middleware"
)

// Generator is the slice of the generation gateway the handlers use.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (*genai.Result, error)
	Summarize(ctx context.Context, resumeText string) (string, error)
}

// StripeService covers the Stripe-only operations beyond webhook parsing:
// checkout creation, success-redirect resolution, and drift-repair polling.
type StripeService interface {
	billing.Provider
	CreateCheckoutSession(ctx context.Context, userID, email string) (url, customerID string, err error)
	ResolveCheckoutSession(ctx context.Context, sessionID string) (*billing.Event, error)
	Refresh(ctx context.Context, profile *domain.Profile) (*billing.Event, error)
}

// Pinger reports database connectivity for diagnostics.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App bundles the dependencies the HTTP handlers need. Everything is
// constructed once in main and injected; handlers hold no globals.
type App struct {
	Store      domain.ProfileStore
	Gateway    Generator
	Stripe     StripeService    // nil when Stripe is not configured
	Lemon      billing.Provider // nil when Lemon Squeezy is not configured
	Reconciler *billing.Reconciler
	DB         Pinger
	Logger     zerolog.Logger
	Config     *config.Config
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the uniform {"error": code} body, with an optional
// human-readable message alongside the machine code.
func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	body := map[string]string{"error": kind}
	if message != "" && message != kind {
		body["message"] = message
	}
	a.json(w, code, body)
}

func (a *App) currentIdentity(r *http.Request) *identity.Identity {
	return middleware.IdentityFromContext(r.Context())
}
