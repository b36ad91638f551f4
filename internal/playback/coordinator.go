package playback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"skillup/pkg/schema"
)

// Coordinator owns one audio output and runs at most one Speak at a time.
type Coordinator struct {
	synth  Synthesizer
	player Player

	mu     sync.Mutex
	active *utterance
}

// utterance is the state of the in-flight Speak call.
type utterance struct {
	cancel  context.CancelFunc
	playing bool // audio handed to the player
	paused  bool
	stopped bool
	resumed chan struct{} // closed on Resume while paused before playing
}

// NewCoordinator creates a coordinator over synth and player.
func NewCoordinator(synth Synthesizer, player Player) *Coordinator {
	return &Coordinator{synth: synth, player: player}
}

// Speak synthesizes text in voice and plays it, blocking until playback
// completes, is stopped, or fails. The device is released on every path.
func (c *Coordinator) Speak(ctx context.Context, text string, voice schema.VoiceProfile) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Code: Skipped}
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		slog.Warn("Playback rejected, device busy")
		return Outcome{Code: Busy}
	}
	pctx, cancel := context.WithCancel(ctx)
	u := &utterance{cancel: cancel}
	c.active = u
	c.mu.Unlock()

	start := time.Now()
	defer func() {
		cancel()
		c.mu.Lock()
		if c.active == u {
			c.active = nil
		}
		c.mu.Unlock()
	}()

	audio, err := c.synth.Synthesize(pctx, text, voice)
	if err != nil {
		if c.cancelled(u, ctx) {
			return Outcome{Code: Stopped, Duration: time.Since(start)}
		}
		slog.Warn("Speech synthesis failed",
			"voice_id", voice.VoiceID,
			"error", err.Error(),
		)
		return Outcome{Code: SynthesisFailed, Err: err, Duration: time.Since(start)}
	}

	if err := c.waitUnpaused(pctx, u); err != nil {
		return Outcome{Code: Stopped, Duration: time.Since(start)}
	}

	err = c.player.Play(pctx, audio)
	if c.cancelled(u, ctx) {
		return Outcome{Code: Stopped, Duration: time.Since(start)}
	}
	if err != nil {
		slog.Warn("Audio playback failed", "error", err.Error())
		return Outcome{Code: PlaybackFailed, Err: err, Duration: time.Since(start)}
	}

	slog.Debug("Playback completed",
		"voice_id", voice.VoiceID,
		"duration", time.Since(start),
	)
	return Outcome{Code: Completed, Duration: time.Since(start)}
}

// waitUnpaused holds playback while a pause requested during synthesis is
// in effect, then marks the utterance as playing.
func (c *Coordinator) waitUnpaused(ctx context.Context, u *utterance) error {
	for {
		c.mu.Lock()
		if u.stopped {
			c.mu.Unlock()
			return context.Canceled
		}
		if !u.paused {
			u.playing = true
			c.mu.Unlock()
			return nil
		}
		resumed := u.resumed
		c.mu.Unlock()

		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Coordinator) cancelled(u *utterance, parent context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return u.stopped || errors.Is(parent.Err(), context.Canceled) || errors.Is(parent.Err(), context.DeadlineExceeded)
}

// Pause pauses the in-flight Speak. It is a no-op when nothing is speaking
// or playback is already paused.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.active
	if u == nil || u.paused || u.stopped {
		return
	}
	u.paused = true
	if !u.playing {
		u.resumed = make(chan struct{})
		return
	}
	if err := c.player.Pause(); err != nil {
		slog.Warn("Failed to pause playback", "error", err)
	}
}

// Resume resumes a paused Speak. It is a no-op unless paused.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.active
	if u == nil || !u.paused || u.stopped {
		return
	}
	u.paused = false
	if !u.playing {
		close(u.resumed)
		return
	}
	if err := c.player.Resume(); err != nil {
		slog.Warn("Failed to resume playback", "error", err)
	}
}

// Stop cancels the in-flight Speak, which then returns Stopped. Safe to call
// any number of times, including when nothing is speaking.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.stopped {
		return
	}
	c.active.stopped = true
	c.active.cancel()
}

// Speaking reports whether a Speak call currently owns the device.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Paused reports whether the in-flight Speak is paused.
func (c *Coordinator) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.paused
}
