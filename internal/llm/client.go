package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

var _ Generator = (*Client)(nil)

// Client is the LLM client for interacting with OpenRouter.
type Client struct {
	config *Config
	http   *http.Client
	models map[string]ModelConfig
}

// NewClient creates a new LLM client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		models: DefaultModels(),
	}, nil
}

// MaxRetries returns the configured parse/validation retry budget.
func (c *Client) MaxRetries() int {
	return c.config.MaxRetries
}

// Model returns the known configuration for name, if any.
func (c *Client) Model(name string) (ModelConfig, bool) {
	m, ok := c.models[name]
	return m, ok
}

// OpenRouterRequest represents a request to OpenRouter (OpenAI-compatible).
type OpenRouterRequest struct {
	Model    string          `json:"model"`
	Messages []OpenRouterMsg `json:"messages"`
}

// OpenRouterMsg represents a message in the conversation.
type OpenRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterResponse represents a response from OpenRouter.
type OpenRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate sends prompt to the default model.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.GenerateWithModel(ctx, c.config.DefaultModel, prompt)
}

// GenerateWithModel makes a single HTTP call to the OpenRouter API.
func (c *Client) GenerateWithModel(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.config.DefaultModel
	}

	reqBody := OpenRouterRequest{
		Model: model,
		Messages: []OpenRouterMsg{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("OpenRouter HTTP request failed",
			"error", err.Error(),
			"duration", duration,
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTimeoutError(err)
		}
		return "", NewNetworkError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	slog.Info("OpenRouter HTTP request completed",
		"model", model,
		"status_code", resp.StatusCode,
		"duration", duration,
	)

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(resp.Body); err != nil {
			slog.Warn("Failed to read error response body", "error", err)
			return "", NewAPIError(resp.StatusCode, fmt.Sprintf("status %d (failed to read error body)", resp.StatusCode))
		}
		return "", NewAPIError(resp.StatusCode, errBody.String())
	}

	var openrouterResp OpenRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		return "", NewAPIError(0, fmt.Sprintf("decode response: %v", err))
	}

	if openrouterResp.Error != nil {
		return "", NewAPIError(0, openrouterResp.Error.Message)
	}

	if len(openrouterResp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}

	return openrouterResp.Choices[0].Message.Content, nil
}
