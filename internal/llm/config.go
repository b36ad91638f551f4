package llm

import (
	"fmt"
	"time"
)

// DefaultMaxRetries is used by GenerateStructured when a generator does not
// report its own retry budget.
const DefaultMaxRetries = 3

// Config contains configuration for the OpenRouter client.
type Config struct {
	// APIKey is the OpenRouter API key
	APIKey string

	// BaseURL is the OpenRouter API base URL
	// Default: https://openrouter.ai/api/v1
	BaseURL string

	// DefaultModel is the model to use when not specified
	// Example: google/gemini-2.5-flash
	DefaultModel string

	// Timeout is the HTTP request timeout
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of parse/validation retries
	// Default: 3
	MaxRetries int
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BaseURL is required")
	}

	if c.DefaultModel == "" {
		return fmt.Errorf("DefaultModel is required")
	}

	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}

// GeminiConfig contains configuration for the Gemini generator.
type GeminiConfig struct {
	APIKey string

	// Model should not start with "models/"
	// Default: gemini-2.0-flash
	Model string

	// BaseURL overrides the Gemini API endpoint (tests only)
	BaseURL string

	MaxRetries int
}

// Validate checks that required config fields are set.
func (c *GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}
	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *GeminiConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}

// ModelConfig contains configuration for a specific model.
type ModelConfig struct {
	// Name is the provider model identifier
	Name string

	// ContextWindow is the maximum context size in tokens
	ContextWindow int

	// Description is a human-readable description
	Description string
}

// DefaultModels returns the models known to work well as practice trainers.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"google/gemini-2.5-flash": {
			Name:          "google/gemini-2.5-flash",
			ContextWindow: 1000000,
			Description:   "Gemini 2.5 Flash - fast conversational replies",
		},
		"anthropic/claude-3.5-sonnet": {
			Name:          "anthropic/claude-3.5-sonnet",
			ContextWindow: 200000,
			Description:   "Claude 3.5 Sonnet - detailed feedback",
		},
		"gemini-2.0-flash": {
			Name:          "gemini-2.0-flash",
			ContextWindow: 1000000,
			Description:   "Gemini 2.0 Flash via the Gemini API",
		},
	}
}
