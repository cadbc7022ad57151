package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"lettergen/internal/domain"
	"lettergen/internal/genai"
	"lettergen/internal/quota"
)

type generateRequest struct {
	JobDescription string `json:"job_description"`
	Resume         string `json:"resume"`
	Tone           string `json:"tone"`
}

type generateResponse struct {
	Text            string `json:"text"`
	Source          string `json:"source"`
	GenerationsUsed int    `json:"generations_used"`
	FreeRemaining   int    `json:"free_remaining"`
	Subscribed      bool   `json:"subscribed"`
}

// Generate runs one cover-letter generation, enforcing the free-tier quota.
// The full text is always returned; the free tier is gated only by the
// pre-generation quota check, never by truncating output.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	ident := a.currentIdentity(r)
	if ident == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_description is required")
		return
	}
	if req.Resume == "" {
		// Fall back to the stored summary so users don't have to re-paste.
		if p, err := a.Store.GetByID(r.Context(), ident.ID); err == nil {
			req.Resume = p.ResumeSummary
		}
	}

	profile, err := a.Store.Ensure(r.Context(), ident.ID, ident.Email)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", ident.ID).Msg("ensure profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}

	decision := quota.Evaluate(profile.GenerationsUsed, profile.IsPro, profile.SubscriptionStatus)
	if !decision.Allowed {
		a.error(w, http.StatusForbidden, "limit_reached",
			"Free generation limit reached. Subscribe to continue.")
		return
	}

	result, err := a.Gateway.Generate(r.Context(), genai.Request{
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
		Tone:           req.Tone,
	})
	if err != nil {
		a.logGeneration(r, profile, false, err.Error())
		a.error(w, http.StatusBadGateway, "upstream_failed", err.Error())
		return
	}

	// On increment failure, report the persisted counter rather than a value
	// the next profile read would contradict.
	used := profile.GenerationsUsed
	if n, err := a.Store.IncrementGenerations(r.Context(), profile.ID); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", profile.ID).Msg("usage increment failed")
	} else {
		used = n
	}
	a.logGeneration(r, profile, true, "")

	after := quota.Evaluate(used, profile.IsPro, profile.SubscriptionStatus)
	a.json(w, http.StatusOK, generateResponse{
		Text:            result.Text,
		Source:          result.Source,
		GenerationsUsed: used,
		FreeRemaining:   after.FreeRemaining,
		Subscribed:      after.Subscribed,
	})
}

// logGeneration appends an audit row. Failures are swallowed; the log never
// blocks the response.
func (a *App) logGeneration(r *http.Request, profile *domain.Profile, success bool, errMsg string) {
	entry := domain.GenerationLog{
		ProfileID: profile.ID,
		Success:   success,
		UsedAt:    profile.GenerationsUsed,
		Error:     errMsg,
	}
	if err := a.Store.InsertGenerationLog(r.Context(), entry); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", profile.ID).Msg("generation log insert failed")
	}
}
