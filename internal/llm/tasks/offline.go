package tasks

import (
	"context"
	"fmt"
	"strings"

	"skillup/internal/llm"
	"skillup/pkg/schema"
)

var _ llm.Generator = OfflineGenerator{}

// OfflineGenerator answers every task without a network call. It lets the
// CLI and server run end to end when no model backend is configured.
type OfflineGenerator struct{}

const feedbackPromptPrefix = "Generate comprehensive "

// Generate returns canned text shaped for the prompt kind.
func (OfflineGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if rest, ok := strings.CutPrefix(prompt, feedbackPromptPrefix); ok {
		word, _, _ := strings.Cut(rest, " ")
		mode, err := schema.ParseMode(word)
		if err != nil {
			return "", fmt.Errorf("offline feedback: %w", err)
		}
		return CannedFeedbackJSON(mode, 3), nil
	}

	if strings.Contains(prompt, "speech practice script") {
		return "Practice is how every confident speaker starts. Read this line slowly and clearly.\n\n" +
			"Take a breath between sentences and look up from the page when you can.", nil
	}

	return "That is an interesting point. Can you give me a concrete example?", nil
}
