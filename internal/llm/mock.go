package llm

import (
	"context"
	"sync"
)

var _ Generator = (*MockGenerator)(nil)

// MockGenerator is a canned Generator for tests. Responses are returned in
// order; the last one repeats once the list is exhausted.
type MockGenerator struct {
	mu sync.Mutex

	Responses []string
	Error     error

	Calls   int
	Prompts []string
}

// NewMockGenerator creates a mock returning responses in order.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{Responses: responses}
}

// Generate records prompt and returns the next canned response.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Prompts = append(m.Prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Error != nil {
		return "", m.Error
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.Calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// LastPrompt returns the most recent prompt, or "" when never called.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
