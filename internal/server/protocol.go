package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"skillup/internal/core"
	"skillup/pkg/schema"
)

// Client message types.
const (
	TypeHello        = "hello"
	TypeOpen         = "open"
	TypeStartCapture = "start_capture"
	TypePartial      = "partial"
	TypeFinal        = "final"
	TypeStopCapture  = "stop_capture"
	TypeReadScript   = "read_script"
	TypePause        = "pause"
	TypeResume       = "resume"
	TypeStopSpeaking = "stop_speaking"
	TypePlaybackDone = "playback_done"
	TypeEndSession   = "end_session"
)

// Server message types.
const (
	TypeSessionStarted  = "session_started"
	TypeState           = "state"
	TypeTurn            = "turn"
	TypeTranscript      = "transcript"
	TypeScript          = "script"
	TypeRecognition     = "recognition"
	TypeAudio           = "audio"
	TypePlayback        = "playback"
	TypePlaybackOutcome = "playback_outcome"
	TypeError           = "error"
	TypeFeedback        = "feedback"
)

// DecodeError is a malformed client frame.
type DecodeError struct {
	Code    string
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: fmt.Sprintf(format, args...)}
}

// ClientHello opens a practice session. It must be the first frame.
type ClientHello struct {
	Type    string      `json:"type"`
	UserID  string      `json:"user_id"`
	Mode    schema.Mode `json:"mode"`
	Topic   string      `json:"topic,omitempty"`
	Context string      `json:"context,omitempty"`
	Trainer string      `json:"trainer,omitempty"`

	// RecognitionSupported is false when the client has no speech
	// recognizer; the session is then refused.
	RecognitionSupported bool `json:"recognition_supported"`
}

// ClientText carries a recognizer result.
type ClientText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClientPlaybackDone acknowledges that an audio frame finished playing.
type ClientPlaybackDone struct {
	Type    string `json:"type"`
	AudioID string `json:"audio_id"`
}

// ClientCommand is any frame without a payload.
type ClientCommand struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses one client frame into its typed message.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame")
	}
	typ := strings.TrimSpace(envelope.Type)

	switch typ {
	case "":
		return nil, badRequest("missing type")
	case TypeHello:
		var msg ClientHello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid hello frame")
		}
		if strings.TrimSpace(msg.UserID) == "" {
			return nil, badRequest("hello.user_id is required")
		}
		return msg, nil
	case TypePartial, TypeFinal:
		var msg ClientText
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid %s frame", typ)
		}
		return msg, nil
	case TypePlaybackDone:
		var msg ClientPlaybackDone
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid playback_done frame")
		}
		if msg.AudioID == "" {
			return nil, badRequest("playback_done.audio_id is required")
		}
		return msg, nil
	case TypeOpen, TypeStartCapture, TypeStopCapture, TypeReadScript,
		TypePause, TypeResume, TypeStopSpeaking, TypeEndSession:
		return ClientCommand{Type: typ}, nil
	default:
		return nil, &DecodeError{Code: "unsupported", Message: fmt.Sprintf("unknown message type %q", typ)}
	}
}

// SessionStarted is the reply to hello.
type SessionStarted struct {
	Type         string         `json:"type"`
	SessionID    string         `json:"session_id"`
	ConnectionID string         `json:"connection_id"`
	Mode         schema.Mode    `json:"mode"`
	Topic        string         `json:"topic"`
	Trainer      schema.Persona `json:"trainer"`
}

// StateMessage reports a controller transition.
type StateMessage struct {
	Type  string     `json:"type"`
	State core.State `json:"state"`
}

// TurnMessage reports a turn appended to the log.
type TurnMessage struct {
	Type string      `json:"type"`
	Turn schema.Turn `json:"turn"`
}

// TextMessage carries a transcript preview or a speech script.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RecognitionCommand tells the client recognizer to start or stop.
type RecognitionCommand struct {
	Type       string `json:"type"`
	Action     string `json:"action"` // start, stop
	Continuous bool   `json:"continuous,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// AudioMessage delivers synthesized speech for the client to play.
type AudioMessage struct {
	Type       string `json:"type"`
	AudioID    string `json:"audio_id"`
	Format     string `json:"format"`
	DataB64    string `json:"data_b64,omitempty"`
	URL        string `json:"url,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// PlaybackControl pauses, resumes or stops client playback.
type PlaybackControl struct {
	Type    string `json:"type"`
	Action  string `json:"action"` // pause, resume, stop
	AudioID string `json:"audio_id"`
}

// PlaybackOutcome reports how a trainer utterance ended.
type PlaybackOutcome struct {
	Type       string `json:"type"`
	Code       string `json:"code"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ServerError reports a failed request. Close means the server is about to
// close the connection.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Close   bool   `json:"close,omitempty"`
}

// FeedbackMessage carries the end-of-session report.
type FeedbackMessage struct {
	Type       string                 `json:"type"`
	Report     *schema.FeedbackReport `json:"report"`
	FeedbackID string                 `json:"feedback_id,omitempty"`
	Degraded   bool                   `json:"degraded,omitempty"`
	Saved      bool                   `json:"saved"`
}

// errorCode maps a session error to its wire code.
func errorCode(err error) string {
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErr):
		return "invalid_request"
	case errors.Is(err, core.ErrRecognitionUnsupported):
		return "recognition_unsupported"
	case errors.Is(err, core.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, core.ErrSessionEnded):
		return "session_ended"
	case errors.Is(err, core.ErrTurnGenerationFailed):
		return "turn_generation_failed"
	case errors.Is(err, core.ErrFeedbackGenerationFailed):
		return "feedback_generation_failed"
	default:
		return "internal"
	}
}
