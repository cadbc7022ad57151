package middleware

import (
	"context"
	"net/http"
	"strings"

	"lettergen/internal/identity"
)

// IdentityResolver verifies a bearer token and returns the caller identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*identity.Identity, error)
}

type contextKey string

const identityKey contextKey = "identity"

// Auth requires a valid bearer token on every request it wraps. The token is
// verified by the auth provider on each request; there is no local session.
func Auth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w)
				return
			}
			ident, err := resolver.Resolve(r.Context(), parts[1])
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

// IdentityFromContext returns the verified caller, or nil outside Auth.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	if v, ok := ctx.Value(identityKey).(*identity.Identity); ok {
		return v
	}
	return nil
}

// ContextWithIdentity injects an identity, for tests and internal calls.
func ContextWithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	if ident == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey, ident)
}
