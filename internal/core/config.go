package core

import (
	"fmt"
	"os"
	"time"
)

// LLM backends.
const (
	BackendOpenRouter = "openrouter"
	BackendGemini     = "gemini"
	BackendGenkit     = "genkit"
	BackendOffline    = "offline"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string // DEBUG, INFO, WARN, ERROR

	LLMBackend        string // openrouter, gemini, genkit, offline
	GenkitBackend     string // backend wrapped by genkit: openrouter, gemini, offline
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DefaultModel      string // OpenRouter model
	GeminiAPIKey      string
	GeminiModel       string

	MurfAPIKey  string // empty disables spoken replies
	MurfBaseURL string

	StorageBackend string // memory, file, sqlite
	StoragePath    string // directory for file, database file for sqlite

	PersonasFile      string // empty uses the built-in catalog
	SettleDelay       time.Duration
	RecognitionLocale string
	ListenAddr        string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	settle, err := time.ParseDuration(getEnvOrDefault("SETTLE_DELAY", "800ms"))
	if err != nil {
		return nil, &ValidationError{Field: "SETTLE_DELAY", Message: "must be a duration such as 800ms", Err: err}
	}

	cfg := &Config{
		LogLevel:          logLevel,
		LLMBackend:        getEnvOrDefault("LLM_BACKEND", BackendOpenRouter),
		GenkitBackend:     getEnvOrDefault("GENKIT_BACKEND", BackendOpenRouter),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel:      getEnvOrDefault("DEFAULT_MODEL", "google/gemini-2.5-flash"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		MurfAPIKey:        os.Getenv("MURF_API_KEY"),
		MurfBaseURL:       getEnvOrDefault("MURF_BASE_URL", "https://api.murf.ai"),
		StorageBackend:    getEnvOrDefault("STORAGE_BACKEND", StorageFile),
		StoragePath:       getEnvOrDefault("STORAGE_PATH", ".skillup"),
		PersonasFile:      os.Getenv("PERSONAS_FILE"),
		SettleDelay:       settle,
		RecognitionLocale: getEnvOrDefault("RECOGNITION_LOCALE", "en-IN"),
		ListenAddr:        getEnvOrDefault("LISTEN_ADDR", ":8080"),
	}

	// API keys are checked by Validate once a backend is actually built
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	backend := c.LLMBackend
	if backend == BackendGenkit {
		backend = c.GenkitBackend
		if backend == BackendGenkit {
			return &ValidationError{Field: "GENKIT_BACKEND", Message: "genkit cannot wrap itself"}
		}
	}

	switch backend {
	case BackendOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return &ValidationError{Field: "OPENROUTER_API_KEY", Message: "required for the openrouter backend"}
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return &ValidationError{Field: "GEMINI_API_KEY", Message: "required for the gemini backend"}
		}
	case BackendOffline:
	default:
		return &ValidationError{Field: "LLM_BACKEND", Message: fmt.Sprintf("unknown backend %q", c.LLMBackend)}
	}

	switch c.StorageBackend {
	case StorageMemory, StorageFile, StorageSQLite:
	default:
		return &ValidationError{Field: "STORAGE_BACKEND", Message: fmt.Sprintf("unknown storage %q", c.StorageBackend)}
	}

	if c.SettleDelay < 0 {
		return &ValidationError{Field: "SETTLE_DELAY", Message: "must not be negative"}
	}

	return nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
