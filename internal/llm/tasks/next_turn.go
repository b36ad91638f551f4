package tasks

import (
	"context"
	"fmt"

	"skillup/internal/llm"
)

// ExecuteNextTurnTask generates the trainer's reply to the latest user turn.
func ExecuteNextTurnTask(
	gen llm.Generator,
	ctx context.Context,
	input *NextTurnInput,
) (*NextTurnOutput, error) {
	if input.Prompt.Mode != "" && !input.Prompt.Mode.Conversational() {
		return nil, fmt.Errorf("next turn task failed: mode %s has no trainer replies", input.Prompt.Mode)
	}

	prompt := llm.BuildNextTurnPrompt(input.Prompt, input.History, input.LatestUserTurn)

	text, err := llm.GenerateText(ctx, gen, prompt)
	if err != nil {
		return nil, fmt.Errorf("next turn task failed: %w", err)
	}
	if err := validateTurnText(text); err != nil {
		return nil, fmt.Errorf("next turn task failed: %w", err)
	}

	return &NextTurnOutput{Text: text}, nil
}
