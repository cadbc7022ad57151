// Package genai calls the external text-generation backend, with a direct
// chat-completion provider as fallback and an optional last-resort local
// template when both remote channels fail.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request describes one cover-letter generation.
type Request struct {
	JobDescription string
	Resume         string
	Tone           string
}

// Result carries the generated text and which channel produced it.
type Result struct {
	Text   string
	Source string // "backend", "direct", or "local"
}

// Options configures the gateway. BackendURL and the direct-provider fields
// may each be empty; an empty channel is skipped in the fallback chain.
type Options struct {
	BackendURL          string
	DirectAPIKey        string
	DirectBaseURL       string
	DirectModel         string
	EnableLocalFallback bool
	HTTPClient          *http.Client
}

// Gateway produces generated text through the configured channels.
type Gateway struct {
	backendURL    string
	directAPIKey  string
	directBaseURL string
	directModel   string
	localFallback bool
	client        *http.Client
}

const gatewayDefaultTimeout = 60 * time.Second

// NewGateway constructs a gateway from options.
func NewGateway(opts Options) *Gateway {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: gatewayDefaultTimeout}
	}
	baseURL := strings.TrimRight(opts.DirectBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.DirectModel)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Gateway{
		backendURL:    strings.TrimRight(opts.BackendURL, "/"),
		directAPIKey:  strings.TrimSpace(opts.DirectAPIKey),
		directBaseURL: baseURL,
		directModel:   model,
		localFallback: opts.EnableLocalFallback,
		client:        client,
	}
}

// Generate runs the fallback chain for a cover letter. The returned error is
// already human-readable; handlers pass it through as the 502 body.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Result, error) {
	var lastErr error

	if g.backendURL != "" {
		text, err := g.callBackend(ctx, req)
		if err == nil {
			return &Result{Text: text, Source: "backend"}, nil
		}
		lastErr = err
	}

	if g.directAPIKey != "" {
		text, err := g.callDirect(ctx, coverLetterPrompt(req))
		if err == nil {
			return &Result{Text: text, Source: "direct"}, nil
		}
		lastErr = err
	}

	if g.localFallback {
		return &Result{Text: localCoverLetter(req), Source: "local"}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no generation channel configured")
	}
	return nil, errors.New(humanizeProviderError(lastErr.Error()))
}

// Summarize requests a structured summary of resume text. There is no local
// template for summaries; callers degrade to a raw excerpt on error.
func (g *Gateway) Summarize(ctx context.Context, resumeText string) (string, error) {
	var lastErr error

	if g.backendURL != "" {
		text, err := g.callBackend(ctx, Request{Resume: resumeText, Tone: "summary"})
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	if g.directAPIKey != "" {
		text, err := g.callDirect(ctx, summaryPrompt(resumeText))
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no generation channel configured")
	}
	return "", errors.New(humanizeProviderError(lastErr.Error()))
}

type backendRequest struct {
	JobDescription string `json:"job_description"`
	Resume         string `json:"resume"`
	Tone           string `json:"tone"`
}

type backendResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (g *Gateway) callBackend(ctx context.Context, req Request) (string, error) {
	payload := backendRequest{JobDescription: req.JobDescription, Resume: req.Resume, Tone: req.Tone}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode backend request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.backendURL+"/generate", &buf)
	if err != nil {
		return "", fmt.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generation backend unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("generation backend status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out backendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode backend response: %w", err)
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", errors.New("generation backend returned empty text")
	}
	return text, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (g *Gateway) callDirect(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:       g.directModel,
		Temperature: 0.6,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a professional career writing assistant."},
			{Role: "user", Content: prompt},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode direct request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.directBaseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("build direct request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.directAPIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("direct provider unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("direct provider status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("decode direct response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("direct provider: %s", out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("direct provider status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("direct provider returned no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("direct provider returned empty text")
	}
	return text, nil
}

func coverLetterPrompt(req Request) string {
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = "professional"
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write a %s cover letter tailored to the job description below, drawing on the candidate's resume. Respond with the letter text only.\n\n", tone)
	fmt.Fprintf(sb, "Job description:\n%s\n\nResume:\n%s\n", req.JobDescription, req.Resume)
	return sb.String()
}

func summaryPrompt(resumeText string) string {
	sb := &strings.Builder{}
	sb.WriteString("Summarize the resume below in this exact format:\n")
	sb.WriteString("Name: <name or Unknown>\nHeadline: <one line>\nSkills: <comma-separated>\nExperience: <3-5 bullet points>\n\n")
	sb.WriteString(resumeText)
	return sb.String()
}

// humanizeProviderError rewrites well-known provider error substrings into
// messages the user can act on. Unrecognized errors pass through unchanged.
func humanizeProviderError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid_api_key"), strings.Contains(lower, "incorrect api key"):
		return "The configured generation API key was rejected. Check DIRECT_API_KEY."
	case strings.Contains(lower, "model_not_found"), strings.Contains(lower, "does not exist or you do not have access"):
		return "The configured generation model is not available. Check DIRECT_MODEL."
	case strings.Contains(lower, "insufficient_quota"), strings.Contains(lower, "exceeded your current quota"):
		return "The generation provider account is out of quota. Check the provider billing."
	default:
		return msg
	}
}
