package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/testgenius/testgenius/internal/logging"
	"github.com/testgenius/testgenius/internal/testcase"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-flash-latest"
)

// Gemini generates test cases through the Google Generative Language API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption configures a Gemini provider.
type GeminiOption func(*Gemini)

// WithGeminiModel overrides the default model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithGeminiBaseURL overrides the API base URL. Used by tests.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(g *Gemini) { g.baseURL = baseURL }
}

// WithGeminiHTTPClient overrides the HTTP client.
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = c }
}

// NewGemini creates a Gemini provider.
func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:     apiKey,
		model:      defaultGeminiModel,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements CategoryGenerator.
func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateCases implements CategoryGenerator.
func (g *Gemini) GenerateCases(ctx context.Context, req *testcase.GenerationRequest, category testcase.Category) ([]testcase.TestCase, error) {
	raw, err := g.GenerateText(ctx, BuildPrompt(req, category))
	if err != nil {
		return nil, err
	}
	return ParseCases(raw, category)
}

// GenerateText implements Analyzer: one prompt in, the raw reply out.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logging.Debug("calling gemini", "model", g.model)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
