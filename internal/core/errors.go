package core

import (
	"errors"
	"fmt"
)

var (
	// ErrRecognitionUnsupported means no speech recognizer is available; the
	// session cannot start.
	ErrRecognitionUnsupported = errors.New("speech recognition is not supported")

	// ErrTurnGenerationFailed matches every TurnGenerationError.
	ErrTurnGenerationFailed = errors.New("turn generation failed")

	// ErrFeedbackGenerationFailed matches every FeedbackGenerationError.
	ErrFeedbackGenerationFailed = errors.New("feedback generation failed")

	// ErrInvalidTransition matches every TransitionError.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrSessionEnded is returned for work on a session that has ended, and
	// for results that arrived after the end.
	ErrSessionEnded = errors.New("session ended")

	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransitionError is returned when an action is not allowed in the current
// session state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// TurnGenerationError wraps a failed opening or reply request.
type TurnGenerationError struct {
	Op  string // "opening" or "next_turn"
	Err error
}

func (e *TurnGenerationError) Error() string {
	return fmt.Sprintf("turn generation (%s): %v", e.Op, e.Err)
}

func (e *TurnGenerationError) Unwrap() error {
	return e.Err
}

func (e *TurnGenerationError) Is(target error) bool {
	return target == ErrTurnGenerationFailed
}

// FeedbackGenerationError wraps a failed feedback request.
type FeedbackGenerationError struct {
	Err error
}

func (e *FeedbackGenerationError) Error() string {
	return fmt.Sprintf("feedback generation: %v", e.Err)
}

func (e *FeedbackGenerationError) Unwrap() error {
	return e.Err
}

func (e *FeedbackGenerationError) Is(target error) bool {
	return target == ErrFeedbackGenerationFailed
}
