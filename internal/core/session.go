package core

import (
	"time"

	"skillup/internal/llm"
	"skillup/pkg/schema"
)

// State is the single tagged state of a practice session.
type State string

const (
	StateIdle               State = "idle"
	StateCapturing          State = "capturing"
	StateProcessingUserTurn State = "processing_user_turn"
	StateAwaitingAITurn     State = "awaiting_ai_turn"
	StateAISpeaking         State = "ai_speaking"
	StateError              State = "error"
	StateEnded              State = "ended"
)

// Brief is the immutable configuration of a session, passed to every
// exchange request.
type Brief struct {
	Mode    schema.Mode
	Topic   string
	Context string // job description / resume text / area of interest
	Trainer schema.Persona

	// PracticeDuration is the total capture time, filled in for feedback
	PracticeDuration time.Duration
}

// PromptContext converts the brief for the prompt builders.
func (b Brief) PromptContext() llm.PromptContext {
	return llm.PromptContext{
		Mode:            b.Mode,
		Topic:           b.Topic,
		Context:         b.Context,
		TrainerName:     b.Trainer.Name,
		TrainerRole:     b.Trainer.Role,
		PracticeMinutes: b.PracticeDuration.Minutes(),
	}
}

// Session identifies one practice run.
type Session struct {
	ID        string
	UserID    string
	Brief     Brief
	State     State
	Turns     []schema.Turn
	Script    string // speech mode only, never a turn
	StartedAt time.Time

	// CaptureTime accumulates time spent capturing
	CaptureTime time.Duration
}

// NewSession creates a session in the idle state.
func NewSession(id, userID string, brief Brief) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Brief:     brief,
		State:     StateIdle,
		Turns:     make([]schema.Turn, 0),
		StartedAt: time.Now(),
	}
}

// AddTurn appends a committed turn to the log.
func (s *Session) AddTurn(speaker schema.Speaker, text string) schema.Turn {
	turn := schema.Turn{Speaker: speaker, Text: text, At: time.Now()}
	s.Turns = append(s.Turns, turn)
	return turn
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Turns = make([]schema.Turn, len(s.Turns))
	copy(clone.Turns, s.Turns)
	return &clone
}
