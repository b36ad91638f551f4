package tasks

import (
	"skillup/internal/llm"
	"skillup/pkg/schema"
)

// Opening Task Types

// OpeningInput is the input for the opening turn / speech script task.
type OpeningInput struct {
	Prompt llm.PromptContext `json:"prompt"`
}

// OpeningOutput is the output from the opening task. In speech mode Text is
// a script to be read, not a conversational turn.
type OpeningOutput struct {
	Text     string `json:"text"`
	IsScript bool   `json:"is_script"`
}

// Next Turn Task Types

// NextTurnInput is the input for the trainer reply task.
type NextTurnInput struct {
	Prompt         llm.PromptContext `json:"prompt"`
	History        []schema.Turn     `json:"history"`
	LatestUserTurn string            `json:"latest_user_turn"`
}

// NextTurnOutput is the output from the trainer reply task.
type NextTurnOutput struct {
	Text string `json:"text"`
}

// Feedback Task Types

// FeedbackInput is the input for the end-of-session feedback task.
type FeedbackInput struct {
	Prompt  llm.PromptContext `json:"prompt"`
	History []schema.Turn     `json:"history"`
}
