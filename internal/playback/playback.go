// Package playback speaks trainer text aloud: it synthesizes audio for a
// voice profile and drives a playback device with pause, resume and stop.
package playback

import (
	"context"
	"time"

	"skillup/pkg/schema"
)

// Code classifies how a Speak call ended.
type Code string

const (
	Completed       Code = "completed"        // played to the end
	Stopped         Code = "stopped"          // cancelled by Stop or by the caller's context
	SynthesisFailed Code = "synthesis_failed" // provider could not produce audio
	PlaybackFailed  Code = "playback_failed"  // device could not play the audio
	Busy            Code = "busy"             // another Speak already owns the device
	Skipped         Code = "skipped"          // nothing to say
)

// Outcome is the result of a Speak call. Failures are reported here rather
// than as errors so the caller can always move on.
type Outcome struct {
	Code     Code
	Err      error
	Duration time.Duration
}

// Silent reports whether the outcome produced no audible speech.
func (o Outcome) Silent() bool {
	return o.Code != Completed && o.Code != Stopped
}

// Audio is synthesized speech ready for a Player.
type Audio struct {
	Data     []byte
	Format   string
	URL      string
	Duration time.Duration
}

// Synthesizer turns text into audio in the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice schema.VoiceProfile) (*Audio, error)
}

// Player plays audio on an output device. Play blocks until the audio ends
// or ctx is cancelled. Pause and Resume are only called while Play runs.
type Player interface {
	Play(ctx context.Context, audio *Audio) error
	Pause() error
	Resume() error
}
