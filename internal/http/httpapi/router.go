package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lettergen/internal/http/handlers"
	"lettergen/internal/middleware"
)

// NewRouter assembles the HTTP surface. Webhooks, the checkout redirect, and
// public config are unauthenticated; everything touching a user profile sits
// behind bearer-token auth.
func NewRouter(app *handlers.App, resolver middleware.IdentityResolver) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS,
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/api/config", app.PublicConfig)
	r.Get("/api/diag", app.Diag)

	r.Post("/api/stripe/webhook", app.StripeWebhook)
	r.Post("/api/lemon/webhook", app.LemonWebhook)
	r.Get("/api/stripe/success", app.StripeSuccess)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(resolver))

		r.Post("/api/ensure-profile", app.EnsureProfile)
		r.Get("/api/profile", app.Profile)
		r.Post("/api/generate", app.Generate)
		r.Post("/api/resume-upload", app.ResumeUpload)
		r.Post("/api/stripe/create-checkout-session", app.CreateCheckoutSession)
	})

	return r
}
