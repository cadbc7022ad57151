package handlers

import (
	"errors"
	"io"
	"net/http"

	"lettergen/internal/resume"
)

const (
	maxResumeUploadBytes = 5 << 20
	rawExcerptLength     = 1500
)

type resumeResponse struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
	Raw     bool   `json:"raw"`
}

// ResumeUpload extracts text from an uploaded document and returns a
// structured summary, reusing the cached one when the content is unchanged.
func (a *App) ResumeUpload(w http.ResponseWriter, r *http.Request) {
	ident := a.currentIdentity(r)
	if ident == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeUploadBytes)
	if err := r.ParseMultipartForm(maxResumeUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "resume exceeds the upload limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}

	text, err := resume.ExtractText(header.Filename, data)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not extract text from document")
		return
	}
	if err := resume.CheckLength(text); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "scanned_pdf",
			"The document contains no extractable text. Export a text-based PDF and try again.")
		return
	}

	profile, err := a.Store.Ensure(r.Context(), ident.ID, ident.Email)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", ident.ID).Msg("ensure profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}

	hash := resume.Fingerprint(text)
	if hash == profile.ResumeHash && profile.ResumeSummary != "" {
		a.json(w, http.StatusOK, resumeResponse{Summary: profile.ResumeSummary, Cached: true})
		return
	}

	summary, err := a.Gateway.Summarize(r.Context(), text)
	if err != nil {
		// Degrade to a raw excerpt rather than failing the upload. The
		// fingerprint is not persisted so a retry summarizes again.
		a.Logger.Warn().Err(err).Str("user_id", ident.ID).Msg("resume summarization failed")
		a.json(w, http.StatusOK, resumeResponse{Summary: resume.Excerpt(text, rawExcerptLength), Raw: true})
		return
	}

	if err := a.Store.UpdateResumeCache(r.Context(), profile.ID, hash, summary); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", ident.ID).Msg("resume cache update failed")
	}
	a.json(w, http.StatusOK, resumeResponse{Summary: summary})
}
