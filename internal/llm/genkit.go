package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

var _ Generator = (*GenkitGenerator)(nil)

// GenkitGenerator routes generation through a Genkit model registered on top
// of another Generator, so every request shows up as a Genkit action.
type GenkitGenerator struct {
	g       *genkit.Genkit
	model   ai.Model
	backend Generator
}

// NewGenkitGenerator registers backend as the Genkit model "skillup/<name>".
func NewGenkitGenerator(ctx context.Context, name string, backend Generator) *GenkitGenerator {
	g := genkit.Init(ctx)

	model := genkit.DefineModel(
		g,
		"skillup/"+name,
		&ai.ModelOptions{
			Label: fmt.Sprintf("%s (practice trainer)", name),
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
			},
		},
		func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			text, err := backend.Generate(ctx, renderModelRequest(req))
			if err != nil {
				return nil, err
			}
			return &ai.ModelResponse{
				Request: req,
				Message: &ai.Message{
					Role:    ai.RoleModel,
					Content: []*ai.Part{ai.NewTextPart(text)},
				},
			}, nil
		},
	)

	return &GenkitGenerator{g: g, model: model, backend: backend}
}

// MaxRetries forwards the backend's retry budget.
func (k *GenkitGenerator) MaxRetries() int {
	if rb, ok := k.backend.(retryBudget); ok {
		return rb.MaxRetries()
	}
	return DefaultMaxRetries
}

// ModelName returns the registered Genkit model name.
func (k *GenkitGenerator) ModelName() string {
	return k.model.Name()
}

// Generate runs prompt through genkit.GenerateText.
func (k *GenkitGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return genkit.GenerateText(ctx, k.g,
		ai.WithModel(k.model),
		ai.WithMessages(ai.NewUserTextMessage(prompt)),
	)
}

// renderModelRequest flattens a Genkit request into one prompt string.
func renderModelRequest(req *ai.ModelRequest) string {
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := m.Text()
		if text == "" {
			continue
		}
		if m.Role == ai.RoleSystem {
			text = "System: " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
