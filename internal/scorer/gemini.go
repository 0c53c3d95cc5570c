package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/x402labs/signalfeed/internal/domain"
)

// Gemini is a Scorer backed by the Gemini generateContent REST API.
type Gemini struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// GeminiConfig holds the parameters for constructing a Gemini scorer.
type GeminiConfig struct {
	APIKey  string
	Model   string        // e.g. "gemini-pro"
	BaseURL string        // e.g. "https://generativelanguage.googleapis.com"
	Timeout time.Duration // per-call HTTP timeout
}

// NewGemini creates a Gemini scorer. Zero-value fields fall back to sane
// defaults; the API key is the only mandatory parameter.
func NewGemini(cfg GeminiConfig) *Gemini {
	model := cfg.Model
	if model == "" {
		model = "gemini-pro"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse is the subset of the generateContent response we consume.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Score sends the observation prompt to Gemini and decodes the returned text
// into an AlphaOpinion. Every failure mode (transport error, non-2xx status,
// unextractable text, decode failure, out-of-range values) is reported as an
// error wrapping domain.ErrScoringFailed so callers can apply the fallback
// uniformly.
func (g *Gemini) Score(ctx context.Context, obs domain.MarketObservation) (domain.AlphaOpinion, error) {
	prompt := buildPrompt(obs)

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("scorer/gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("scorer/gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: %v", domain.ErrScoringFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: read response: %v", domain.ErrScoringFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: status %d", domain.ErrScoringFailed, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: decode envelope: %v", domain.ErrScoringFailed, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: empty candidates", domain.ErrScoringFailed)
	}

	opinion, err := ParseOpinion(gr.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return domain.AlphaOpinion{}, err
	}
	return opinion, nil
}
