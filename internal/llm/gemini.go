package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator implements Generator using the Google Gemini API.
type GeminiGenerator struct {
	client     *genai.Client
	model      string
	maxRetries int
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, config *GeminiConfig) (*GeminiGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGenerator{
		client:     client,
		model:      config.Model,
		maxRetries: config.MaxRetries,
	}, nil
}

// MaxRetries returns the configured parse/validation retry budget.
func (g *GeminiGenerator) MaxRetries() int {
	return g.maxRetries
}

// Generate sends prompt as a single user turn and concatenates the text
// parts of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	duration := time.Since(start)
	if err != nil {
		slog.Error("Gemini request failed",
			"model", g.model,
			"error", err.Error(),
			"duration", duration,
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTimeoutError(err)
		}
		return "", &LLMError{Type: ErrorTypeAPI, Message: err.Error(), Err: err}
	}

	slog.Info("Gemini request completed",
		"model", g.model,
		"duration", duration,
	)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", NewAPIError(0, "no candidates in response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
