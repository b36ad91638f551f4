package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	"skillup/pkg/schema"
)

var (
	_ Synthesizer = (*SilentSynthesizer)(nil)
	_ Player      = (*SilentPlayer)(nil)
)

// SilentSynthesizer produces empty audio timed to a reading pace. It stands
// in for a real provider when no synthesis key is configured.
type SilentSynthesizer struct {
	// WordsPerMinute sets the simulated pace. Zero means 150.
	WordsPerMinute int
}

// Synthesize returns audio without data whose duration matches text length.
func (s SilentSynthesizer) Synthesize(ctx context.Context, text string, _ schema.VoiceProfile) (*Audio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wpm := s.WordsPerMinute
	if wpm <= 0 {
		wpm = 150
	}
	words := len(strings.Fields(text))
	return &Audio{
		Format:   "none",
		Duration: time.Duration(words) * time.Minute / time.Duration(wpm),
	}, nil
}

// SilentPlayer "plays" audio by waiting out its duration, honoring pause,
// resume and cancellation.
type SilentPlayer struct {
	mu        sync.Mutex
	paused    bool
	remaining time.Duration
	started   time.Time
	wake      chan struct{}
}

// NewSilentPlayer creates a player with no output device.
func NewSilentPlayer() *SilentPlayer {
	return &SilentPlayer{}
}

// Play blocks for audio.Duration of unpaused time. A Pause issued just
// before Play is honored.
func (p *SilentPlayer) Play(ctx context.Context, audio *Audio) error {
	p.mu.Lock()
	p.remaining = audio.Duration
	p.started = time.Now()
	p.wake = make(chan struct{}, 1)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.paused = false
		p.wake = nil
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		paused := p.paused
		wait := p.remaining - time.Since(p.started)
		wake := p.wake
		p.mu.Unlock()

		if !paused && wait <= 0 {
			return nil
		}

		var timer *time.Timer
		var fired <-chan time.Time
		if !paused {
			timer = time.NewTimer(wait)
			fired = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-wake:
		case <-fired:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Pause freezes the remaining duration.
func (p *SilentPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return nil
	}
	p.paused = true
	p.remaining -= time.Since(p.started)
	p.signal()
	return nil
}

// Resume continues from where Pause left off.
func (p *SilentPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return nil
	}
	p.paused = false
	p.started = time.Now()
	p.signal()
	return nil
}

func (p *SilentPlayer) signal() {
	if p.wake == nil {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
