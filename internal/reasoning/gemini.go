package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/gridline/design-review-service/internal/prompt"
)

// GeminiEngine adapts the Google Gemini API to the Engine interface.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

// NewGeminiEngine creates a Gemini-backed engine. A missing API key is
// logged here but only fails at first use, so the service can still
// start and serve history reads without a credential.
func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	if model == "" {
		model = "gemini-2.5-flash"
		slog.Warn("REVIEW_MODEL not set, defaulting to gemini-2.5-flash")
	}
	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY is not set. Review requests will fail.")
		return &GeminiEngine{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	slog.Info("Initializing Gemini engine", "model", model)
	return &GeminiEngine{client: client, model: model}, nil
}

// Review submits the prompt with the contract's decoding configuration
// and returns the engine's raw text, stripped of code fencing.
func (g *GeminiEngine) Review(ctx context.Context, promptText string, params prompt.Params) (string, error) {
	if g.client == nil {
		return "", &UpstreamError{Cause: errors.New("no API credential configured")}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(params.Temperature),
		TopP:        genai.Ptr(params.TopP),
		TopK:        genai.Ptr(params.TopK),
	}
	if params.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(promptText), cfg)
	if err != nil {
		slog.Error("Gemini API call failed", "model", g.model, "error", err)
		return "", &UpstreamError{Cause: err}
	}

	text := resp.Text()
	if text == "" {
		slog.Warn("Gemini returned an empty completion", "model", g.model)
		return "", &UpstreamError{Cause: errors.New("empty completion")}
	}

	return StripFences(text), nil
}
