package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"skillup/internal/core"
	"skillup/internal/llm"
	"skillup/internal/llm/tasks"
	"skillup/internal/playback"
	"skillup/internal/repository"
)

// buildGenerator creates the text generation backend named by c.
func buildGenerator(ctx context.Context, c *core.Config) (llm.Generator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.LLMBackend == core.BackendGenkit {
		backend, err := buildBackend(ctx, c, c.GenkitBackend)
		if err != nil {
			return nil, err
		}
		return llm.NewGenkitGenerator(ctx, c.GenkitBackend, backend), nil
	}
	return buildBackend(ctx, c, c.LLMBackend)
}

func buildBackend(ctx context.Context, c *core.Config, name string) (llm.Generator, error) {
	switch name {
	case core.BackendOpenRouter:
		client, err := llm.NewClient(&llm.Config{
			APIKey:       c.OpenRouterAPIKey,
			BaseURL:      c.OpenRouterBaseURL,
			DefaultModel: c.DefaultModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openrouter client: %w", err)
		}
		return client, nil
	case core.BackendGemini:
		gen, err := llm.NewGeminiGenerator(ctx, &llm.GeminiConfig{
			APIKey: c.GeminiAPIKey,
			Model:  c.GeminiModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini generator: %w", err)
		}
		return gen, nil
	case core.BackendOffline:
		return tasks.OfflineGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", name)
	}
}

// buildStore opens the feedback store named by c. The caller closes it.
func buildStore(c *core.Config, owner string) (repository.FeedbackStore, error) {
	switch c.StorageBackend {
	case core.StorageMemory:
		return repository.NewMemoryStore(), nil
	case core.StorageFile:
		return repository.NewFileStore(c.StoragePath, owner), nil
	case core.StorageSQLite:
		path := c.StoragePath
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "feedback.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		store, err := repository.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

// buildSynthesizer returns Murf when a key is configured and timed silence
// otherwise. wpm paces the silent fallback.
func buildSynthesizer(c *core.Config, wpm int) (playback.Synthesizer, error) {
	if c.MurfAPIKey == "" {
		logger.Info("MURF_API_KEY not set, trainer replies are silent")
		return playback.SilentSynthesizer{WordsPerMinute: wpm}, nil
	}
	synth, err := playback.NewMurfSynthesizer(&playback.MurfConfig{
		APIKey:  c.MurfAPIKey,
		BaseURL: c.MurfBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create murf synthesizer: %w", err)
	}
	return synth, nil
}

// buildLifecycle wires the session manager from c. The returned store must
// be closed by the caller.
func buildLifecycle(ctx context.Context, c *core.Config, owner string) (*core.Lifecycle, repository.FeedbackStore, error) {
	gen, err := buildGenerator(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	personas, err := core.LoadPersonas(c.PersonasFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := buildStore(c, owner)
	if err != nil {
		return nil, nil, err
	}

	lc := core.NewLifecycle(core.NewLLMTurnExchange(gen), store, personas, core.LifecycleOptions{
		SettleDelay: c.SettleDelay,
		Locale:      c.RecognitionLocale,
		Logger:      logger,
	})
	return lc, store, nil
}
