package tasks

import (
	"context"
	"fmt"

	"skillup/internal/llm"
	"skillup/pkg/schema"
)

// ExecuteOpeningTask generates the trainer's first utterance, or the
// practice script for speech sessions.
func ExecuteOpeningTask(
	gen llm.Generator,
	ctx context.Context,
	input *OpeningInput,
) (*OpeningOutput, error) {
	prompt := llm.BuildOpeningPrompt(input.Prompt)

	text, err := llm.GenerateText(ctx, gen, prompt)
	if err != nil {
		return nil, fmt.Errorf("opening task failed: %w", err)
	}
	if err := validateTurnText(text); err != nil {
		return nil, fmt.Errorf("opening task failed: %w", err)
	}

	return &OpeningOutput{
		Text:     text,
		IsScript: input.Prompt.Mode == schema.ModeSpeech,
	}, nil
}

func validateTurnText(text string) error {
	if len(text) > schema.TurnTextMax {
		return llm.NewValidationError(fmt.Sprintf("response must be at most %d characters, got %d", schema.TurnTextMax, len(text)), nil)
	}
	return nil
}
