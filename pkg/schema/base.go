package schema

import "fmt"

// Mode is the kind of practice run. It is fixed for a session's lifetime.
type Mode string

const (
	ModeDebate    Mode = "debate"    // back-and-forth argument against the trainer
	ModeInterview Mode = "interview" // trainer asks, user answers
	ModeSpeech    Mode = "speech"    // monologue read from a generated script
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeDebate, ModeInterview, ModeSpeech}

// ParseMode converts a user supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDebate, ModeInterview, ModeSpeech:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want debate, interview or speech)", s)
	}
}

// Conversational reports whether the trainer replies to every user turn.
func (m Mode) Conversational() bool {
	return m == ModeDebate || m == ModeInterview
}

// Dimensions returns the feedback stat keys scored for the mode.
func (m Mode) Dimensions() []string {
	switch m {
	case ModeDebate:
		return []string{"argument_strength", "clarity", "rebuttals", "time_management"}
	case ModeInterview:
		return []string{"technical_skills", "communication", "confidence", "problem_solving"}
	case ModeSpeech:
		return []string{"clarity", "pacing", "structure", "vocabulary"}
	default:
		return nil
	}
}

// DefaultTopic is used when a session starts without a topic.
func (m Mode) DefaultTopic() string {
	switch m {
	case ModeDebate:
		return "General Debate Practice"
	case ModeInterview:
		return "General Interview Practice"
	case ModeSpeech:
		return "General Speech Practice"
	default:
		return ""
	}
}

// ValidationLimits defines the constraints for various fields.
const (
	TopicMax           = 200
	ContextMax         = 20000
	TurnTextMax        = 10000
	ScoreMin           = 1
	ScoreMax           = 5
	SummaryMin         = 1
	SummaryMax         = 4000
	FeedbackListMax    = 20
	TrainerNameMax     = 100
	PersonaBioMax      = 1000
	UserIDMax          = 128
	PracticeMinutesMax = 600
)
