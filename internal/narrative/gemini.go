// internal/narrative/gemini.go
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
	maxBodyBytes   = 1 << 20
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

const promptTemplate = `You are Ghost Whisperer, an AI that analyzes open source projects and generates mysterious, cyberpunk-themed summaries called "Ghost Logs".

Analyze this project and create a Ghost Log:
- Project: %s
- Description: %s
- Stars: %d
- Forks: %d
- Last Updated: %s

Generate a Ghost Log (2-3 sentences max) that:
1. Describes the project's purpose in a mysterious, cyberpunk tone
2. Hints at its potential and community activity
3. Uses terms like "digital echoes", "code spirits", "neural pathways", etc.

Also determine the project status:
- "active" if updated within 30 days and has good activity
- "dormant" if hasn't been updated in 30-180 days
- "haunted" if abandoned (>180 days) or has concerning metrics

Respond in JSON format:
{
  "ghostLog": "your ghost log text here",
  "status": "active|dormant|haunted"
}`

// GeminiConfig configures the Gemini generateContent endpoint.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini generates ghost logs with Google's Gemini API.
type Gemini struct {
	cfg GeminiConfig
}

// NewGemini builds a Gemini generator, filling unset fields with defaults.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Gemini{cfg: cfg}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type ghostLogPayload struct {
	GhostLog string `json:"ghostLog"`
	Status   string `json:"status"`
}

// Generate asks Gemini for a ghost log and a suggested status.
// Transport failures and malformed output wrap ErrNarrativeUnavailable.
func (g *Gemini) Generate(ctx context.Context, req Request) (Narrative, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: buildPrompt(req)}}}},
		GenerationConfig: generationConfig{Temperature: 0.8, MaxOutputTokens: 256},
	})
	if err != nil {
		return Narrative{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.cfg.BaseURL, url.PathEscape(g.cfg.Model), url.QueryEscape(g.cfg.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Narrative{}, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return Narrative{}, fmt.Errorf("%w: %w", custom_errors.ErrNarrativeUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Narrative{}, fmt.Errorf("%w: read response: %w", custom_errors.ErrNarrativeUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Narrative{}, fmt.Errorf("%w: gemini status %d", custom_errors.ErrNarrativeUnavailable, resp.StatusCode)
	}

	return parseResponse(raw)
}

func buildPrompt(req Request) string {
	lastUpdated := "unknown"
	if !req.Metrics.LastUpdatedAt.IsZero() {
		lastUpdated = req.Metrics.LastUpdatedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf(promptTemplate, req.Title, req.Description, req.Metrics.Stars, req.Metrics.Forks, lastUpdated)
}

// parseResponse pulls the first JSON object out of the model's text answer.
func parseResponse(raw []byte) (Narrative, error) {
	text := gjson.GetBytes(raw, "candidates.0.content.parts.0.text").String()
	match := jsonObject.FindString(text)
	if match == "" {
		return Narrative{}, fmt.Errorf("%w: no JSON object in model output", custom_errors.ErrNarrativeUnavailable)
	}

	var payload ghostLogPayload
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return Narrative{}, fmt.Errorf("%w: decode model output: %w", custom_errors.ErrNarrativeUnavailable, err)
	}
	if strings.TrimSpace(payload.GhostLog) == "" {
		return Narrative{}, fmt.Errorf("%w: empty ghost log", custom_errors.ErrNarrativeUnavailable)
	}

	suggested := model.Status(strings.ToLower(strings.TrimSpace(payload.Status)))
	if !suggested.Valid() {
		suggested = ""
	}
	return Narrative{
		Text:            strings.TrimSpace(payload.GhostLog),
		SuggestedStatus: suggested,
	}, nil
}
