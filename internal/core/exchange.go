package core

import (
	"context"
	"errors"
	"sync"

	"skillup/internal/llm"
	"skillup/internal/llm/tasks"
	"skillup/pkg/schema"
)

// TurnExchange is the request/response boundary to the text-generation
// collaborator. Implementations hold no session state.
type TurnExchange interface {
	// RequestOpeningTurn returns the trainer's first utterance, or the
	// practice script for speech sessions.
	RequestOpeningTurn(ctx context.Context, brief Brief) (string, error)

	// RequestNextTurn returns the trainer's reply. history holds every
	// turn before latestUserTurn.
	RequestNextTurn(ctx context.Context, brief Brief, history []schema.Turn, latestUserTurn string) (string, error)

	RequestFeedback(ctx context.Context, brief Brief, history []schema.Turn) (*schema.FeedbackReport, error)
}

// LLMTurnExchange implements TurnExchange with the llm tasks.
type LLMTurnExchange struct {
	gen llm.Generator
}

// NewLLMTurnExchange creates an exchange over any generator backend.
func NewLLMTurnExchange(gen llm.Generator) *LLMTurnExchange {
	return &LLMTurnExchange{gen: gen}
}

func (e *LLMTurnExchange) RequestOpeningTurn(ctx context.Context, brief Brief) (string, error) {
	out, err := tasks.ExecuteOpeningTask(e.gen, ctx, &tasks.OpeningInput{Prompt: brief.PromptContext()})
	if err != nil {
		return "", &TurnGenerationError{Op: "opening", Err: err}
	}
	return out.Text, nil
}

func (e *LLMTurnExchange) RequestNextTurn(ctx context.Context, brief Brief, history []schema.Turn, latestUserTurn string) (string, error) {
	out, err := tasks.ExecuteNextTurnTask(e.gen, ctx, &tasks.NextTurnInput{
		Prompt:         brief.PromptContext(),
		History:        history,
		LatestUserTurn: latestUserTurn,
	})
	if err != nil {
		return "", &TurnGenerationError{Op: "next_turn", Err: err}
	}
	return out.Text, nil
}

func (e *LLMTurnExchange) RequestFeedback(ctx context.Context, brief Brief, history []schema.Turn) (*schema.FeedbackReport, error) {
	report, err := tasks.ExecuteFeedbackTask(e.gen, ctx, &tasks.FeedbackInput{
		Prompt:  brief.PromptContext(),
		History: history,
	})
	if err != nil {
		return nil, &FeedbackGenerationError{Err: err}
	}
	return report, nil
}

// MockTurnExchange is a scripted TurnExchange for tests.
type MockTurnExchange struct {
	mu sync.Mutex

	OpeningText   string
	NextTurnTexts []string // returned in order, the last one repeats
	Report        *schema.FeedbackReport

	OpeningErr  error
	NextTurnErr error
	FeedbackErr error

	// NextTurnGate, when set, holds RequestNextTurn until it receives or is
	// closed. The wait ignores ctx so a reply can arrive after cancellation.
	NextTurnGate chan struct{}

	OpeningCalls  int
	NextTurnCalls int
	FeedbackCalls int

	LastHistory     []schema.Turn
	LastUserTurn    string
	FeedbackHistory []schema.Turn
}

// NewMockTurnExchange creates a mock that replies with texts in order.
func NewMockTurnExchange(texts ...string) *MockTurnExchange {
	return &MockTurnExchange{
		OpeningText:   "Welcome. Let us begin.",
		NextTurnTexts: texts,
	}
}

func (m *MockTurnExchange) RequestOpeningTurn(ctx context.Context, brief Brief) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpeningCalls++
	if m.OpeningErr != nil {
		return "", &TurnGenerationError{Op: "opening", Err: m.OpeningErr}
	}
	return m.OpeningText, nil
}

func (m *MockTurnExchange) RequestNextTurn(ctx context.Context, brief Brief, history []schema.Turn, latestUserTurn string) (string, error) {
	m.mu.Lock()
	m.NextTurnCalls++
	call := m.NextTurnCalls
	m.LastHistory = append([]schema.Turn(nil), history...)
	m.LastUserTurn = latestUserTurn
	gate := m.NextTurnGate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NextTurnErr != nil {
		return "", &TurnGenerationError{Op: "next_turn", Err: m.NextTurnErr}
	}
	if len(m.NextTurnTexts) == 0 {
		return "", &TurnGenerationError{Op: "next_turn", Err: errors.New("no scripted reply")}
	}
	idx := call - 1
	if idx >= len(m.NextTurnTexts) {
		idx = len(m.NextTurnTexts) - 1
	}
	return m.NextTurnTexts[idx], nil
}

func (m *MockTurnExchange) RequestFeedback(ctx context.Context, brief Brief, history []schema.Turn) (*schema.FeedbackReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedbackCalls++
	m.FeedbackHistory = append([]schema.Turn(nil), history...)
	if m.FeedbackErr != nil {
		return nil, &FeedbackGenerationError{Err: m.FeedbackErr}
	}
	if m.Report != nil {
		return m.Report, nil
	}
	report := &schema.FeedbackReport{
		Summary: "Solid practice.",
		Stats:   map[string]schema.Stat{},
	}
	for _, dim := range brief.Mode.Dimensions() {
		report.Stats[dim] = schema.Stat{Score: 3, Comment: "steady"}
	}
	return report, nil
}

// Counts returns the opening, next-turn and feedback call counts.
func (m *MockTurnExchange) Counts() (opening, nextTurn, feedback int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.OpeningCalls, m.NextTurnCalls, m.FeedbackCalls
}
