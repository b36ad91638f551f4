package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Generator is a text generation collaborator: it takes a natural-language
// prompt and returns the model's raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// retryBudget is implemented by generators that carry their own retry limit.
type retryBudget interface {
	MaxRetries() int
}

// GenerateText returns trimmed plain text from gen. An empty response is an
// error, never a silent empty string.
func GenerateText(ctx context.Context, gen Generator, prompt string) (string, error) {
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewEmptyResponseError()
	}
	return text, nil
}

// GenerateStructured generates a structured output from the LLM with validation and retry
// T is the type of the structured output
// validate is an optional validation function that returns an error if the output is invalid.
func GenerateStructured[T any](
	gen Generator,
	ctx context.Context,
	prompt string,
	validate func(*T) error,
) (*T, error) {
	maxRetries := DefaultMaxRetries
	if rb, ok := gen.(retryBudget); ok && rb.MaxRetries() > 0 {
		maxRetries = rb.MaxRetries()
	}

	originalPrompt := prompt
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		slog.Info("LLM generation attempt",
			"attempt", attempt,
			"prompt_length", len(prompt),
		)

		content, err := gen.Generate(ctx, prompt)
		if err != nil {
			// Transport failures are not fixed by re-prompting
			var llmErr *LLMError
			if errors.As(err, &llmErr) && llmErr.Retryable() {
				lastErr = err
				continue
			}
			return nil, err
		}

		var result T
		if err := DecodeJSON(content, &result); err != nil {
			lastErr = NewParseError(content, err)
			slog.Warn("LLM output parse failed",
				"attempt", attempt,
				"error", err.Error(),
			)
			prompt = fmt.Sprintf("%s\n\nPREVIOUS ATTEMPT FAILED:\nError: %v\n\nPlease return valid JSON matching the exact structure requested.", originalPrompt, err)
			continue
		}

		if validate != nil {
			if err := validate(&result); err != nil {
				lastErr = NewValidationError(err.Error(), err)
				slog.Warn("LLM output validation failed",
					"attempt", attempt,
					"error", err.Error(),
				)
				// Feed validation error back to LLM
				prompt = fmt.Sprintf("%s\n\nPREVIOUS VALIDATION ERROR:\n%v\n\nPlease fix the output to pass validation.", originalPrompt, err)
				continue
			}
		}

		slog.Info("LLM generation succeeded", "attempt", attempt)
		return &result, nil
	}

	return nil, fmt.Errorf("validation failed after %d attempts: %w", maxRetries, lastErr)
}
