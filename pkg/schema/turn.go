package schema

import (
	"strings"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

// Turn is one committed utterance in the conversation log. Turns are never
// mutated once appended.
type Turn struct {
	Speaker Speaker   `json:"speaker" yaml:"speaker"`
	Text    string    `json:"text" yaml:"text"`
	At      time.Time `json:"at" yaml:"at"`
}

// RenderHistory renders turns as "speaker: text" lines in chronological order.
func RenderHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, string(t.Speaker)+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}
