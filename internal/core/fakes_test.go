package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"skillup/internal/playback"
	"skillup/pkg/schema"
)

type fakeRecognizer struct {
	mu          sync.Mutex
	unsupported bool
	startErr    error
	starts      int
	stops       int
	locale      string
}

func (r *fakeRecognizer) Supported() bool { return !r.unsupported }

func (r *fakeRecognizer) Start(ctx context.Context, opts RecognitionOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.locale = opts.Locale
	return nil
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *fakeRecognizer) counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

// activityProbe tracks how many exchange and playback calls overlap.
type activityProbe struct {
	mu      sync.Mutex
	current int
	max     int
}

func (p *activityProbe) enter() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if p.current > p.max {
		p.max = p.current
	}
}

func (p *activityProbe) exit() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current--
}

func (p *activityProbe) peak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

// fakePlayback plays for delay, or until Stop when hold is set.
type fakePlayback struct {
	mu      sync.Mutex
	hold    bool
	delay   time.Duration
	code    playback.Code
	probe   *activityProbe
	spoken  []string
	voices  []schema.VoiceProfile
	stops   int
	pauses  int
	resumes int
	stopCh  chan struct{}
	playing bool
}

func (p *fakePlayback) Speak(ctx context.Context, text string, voice schema.VoiceProfile) playback.Outcome {
	p.probe.enter()
	defer p.probe.exit()

	p.mu.Lock()
	p.spoken = append(p.spoken, text)
	p.voices = append(p.voices, voice)
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.playing = true
	hold, delay, code := p.hold, p.delay, p.code
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.stopCh = nil
		p.mu.Unlock()
	}()

	if code == "" {
		code = playback.Completed
	}
	var timeout <-chan time.Time
	if !hold {
		timeout = time.After(delay)
	}
	select {
	case <-timeout:
		if code == playback.SynthesisFailed {
			return playback.Outcome{Code: code, Err: errors.New("provider down")}
		}
		return playback.Outcome{Code: code}
	case <-stopCh:
		return playback.Outcome{Code: playback.Stopped}
	case <-ctx.Done():
		return playback.Outcome{Code: playback.Stopped}
	}
}

func (p *fakePlayback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *fakePlayback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
}

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

func (p *fakePlayback) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayback) spokenTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.spoken...)
}

func (p *fakePlayback) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// probedExchange records overlapping calls on the wrapped exchange.
type probedExchange struct {
	TurnExchange
	probe *activityProbe
	delay time.Duration
}

func (e *probedExchange) RequestOpeningTurn(ctx context.Context, brief Brief) (string, error) {
	e.probe.enter()
	defer e.probe.exit()
	time.Sleep(e.delay)
	return e.TurnExchange.RequestOpeningTurn(ctx, brief)
}

func (e *probedExchange) RequestNextTurn(ctx context.Context, brief Brief, history []schema.Turn, latest string) (string, error) {
	e.probe.enter()
	defer e.probe.exit()
	time.Sleep(e.delay)
	return e.TurnExchange.RequestNextTurn(ctx, brief, history, latest)
}

// eventLog collects controller events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) sink(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var states []State
	for _, ev := range l.events {
		if ev.Type == EventState {
			states = append(states, ev.State)
		}
	}
	return states
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
