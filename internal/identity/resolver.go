// Package identity exchanges caller bearer tokens for verified user
// identities by delegating to the hosted auth provider.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Identity is the verified caller, as reported by the auth provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Resolver verifies bearer tokens against the auth provider's user endpoint.
// Token parsing and key management stay entirely on the provider side.
type Resolver struct {
	baseURL string
	anonKey string
	client  *http.Client
}

const resolverDefaultTimeout = 10 * time.Second

// NewResolver builds a resolver for the given auth provider base URL.
func NewResolver(baseURL, anonKey string, client *http.Client) (*Resolver, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("auth provider base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: resolverDefaultTimeout}
	}
	return &Resolver{baseURL: baseURL, anonKey: anonKey, client: client}, nil
}

// Resolve returns the identity behind a bearer token. Any failure, from
// transport errors to a revoked token, yields an error; callers map that to
// a 401 without distinguishing causes.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if r.anonKey != "" {
		req.Header.Set("apikey", r.anonKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth provider status %d", resp.StatusCode)
	}

	var ident Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if ident.ID == "" {
		return nil, errors.New("auth response missing user id")
	}
	return &ident, nil
}
