package tasks

import (
	"context"
	"fmt"

	"skillup/internal/llm"
	"skillup/pkg/schema"
)

// ExecuteFeedbackTask generates the structured end-of-session report.
func ExecuteFeedbackTask(
	gen llm.Generator,
	ctx context.Context,
	input *FeedbackInput,
) (*schema.FeedbackReport, error) {
	prompt := llm.BuildFeedbackPrompt(input.Prompt, input.History)

	validate := func(output *schema.FeedbackReport) error {
		return schema.ValidateFeedbackReport(output, input.Prompt.Mode)
	}

	result, err := llm.GenerateStructured[schema.FeedbackReport](
		gen,
		ctx,
		prompt,
		validate,
	)
	if err != nil {
		return nil, fmt.Errorf("feedback task failed: %w", err)
	}

	normalizeReport(result)
	return result, nil
}

// normalizeReport replaces missing lists with empty ones so the envelope
// always serializes every key as an array.
func normalizeReport(r *schema.FeedbackReport) {
	if r.Stats == nil {
		r.Stats = map[string]schema.Stat{}
	}
	if r.Highlights == nil {
		r.Highlights = []string{}
	}
	if r.Improvements == nil {
		r.Improvements = []string{}
	}
	if r.Tips == nil {
		r.Tips = []string{}
	}
	if r.NextSteps == nil {
		r.NextSteps = []string{}
	}
}
