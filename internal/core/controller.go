package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skillup/internal/playback"
	"skillup/pkg/schema"
)

// DefaultSettleDelay is how long StopCapture waits for trailing partials
// before committing the transcript.
const DefaultSettleDelay = 800 * time.Millisecond

// RecognitionOptions configures a recognizer start.
type RecognitionOptions struct {
	Continuous bool
	Locale     string
}

// Recognizer is the speech-recognition collaborator. Partial and final
// results are delivered through Controller.OnPartialResult and
// Controller.OnFinalResult.
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context, opts RecognitionOptions) error
	Stop() error
}

// Playback speaks trainer text. playback.Coordinator implements it.
type Playback interface {
	Speak(ctx context.Context, text string, voice schema.VoiceProfile) playback.Outcome
	Pause()
	Resume()
	Stop()
}

// EventType identifies what an Event reports.
type EventType string

const (
	EventState      EventType = "state"
	EventTurn       EventType = "turn"
	EventScript     EventType = "script"
	EventTranscript EventType = "transcript"
	EventPlayback   EventType = "playback"
	EventError      EventType = "error"
)

// Event is published to the EventSink on every observable change.
type Event struct {
	Type      EventType
	SessionID string
	State     State
	Turn      *schema.Turn
	Text      string // script or live transcript
	Outcome   *playback.Outcome
	Err       error
}

// EventSink receives controller events. It is called with the controller
// lock held: it must not block and must not call back into the controller.
type EventSink func(Event)

// ControllerOptions tunes a Controller.
type ControllerOptions struct {
	SettleDelay time.Duration // zero means DefaultSettleDelay
	Locale      string
	Sink        EventSink
	Logger      Logger
}

// TurnResult describes one completed capture cycle.
type TurnResult struct {
	User     *schema.Turn
	AI       *schema.Turn
	Playback *playback.Outcome
	Empty    bool // nothing was captured; no turn was recorded
}

// Controller owns the turn-taking state machine of one session. At most one
// of capturing, awaiting a trainer turn and speaking is ever in progress,
// and a session never has two exchange or playback calls outstanding.
//
// Blocking operations (Open, StopCapture, ReadScript) run the whole cycle on
// the caller's goroutine and release the lock only while waiting on the
// settle delay, the exchange, or playback.
type Controller struct {
	mu sync.Mutex

	session    *Session
	acc        *TranscriptAccumulator
	exchange   TurnExchange
	recognizer Recognizer
	playback   Playback

	settleDelay time.Duration
	locale      string
	sink        EventSink
	logger      Logger

	ctx    context.Context
	cancel context.CancelFunc

	// epoch changes whenever a cycle starts or the session ends; a cycle
	// whose epoch is stale discards its result.
	epoch        uint64
	opened       bool
	captureStart time.Time
	stopSpeech   func() // set while speaking
}

// NewController creates a controller for session in the idle state.
func NewController(session *Session, exchange TurnExchange, recognizer Recognizer, pb Playback, opts ControllerOptions) *Controller {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		session:     session,
		acc:         NewTranscriptAccumulator(),
		exchange:    exchange,
		recognizer:  recognizer,
		playback:    pb,
		settleDelay: opts.SettleDelay,
		locale:      opts.Locale,
		sink:        opts.Sink,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.session.ID
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}

// Session returns a snapshot of the session.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Turns returns a copy of the turn log in chronological order.
func (c *Controller) Turns() []schema.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]schema.Turn(nil), c.session.Turns...)
}

// Brief returns the session configuration with the capture time so far.
func (c *Controller) Brief() Brief {
	c.mu.Lock()
	defer c.mu.Unlock()
	brief := c.session.Brief
	brief.PracticeDuration = c.session.CaptureTime
	return brief
}

// Open requests the trainer's opening. Conversational modes speak it as the
// first trainer turn; speech mode stores the practice script instead. A
// failed opening leaves the session in the error state and may be retried
// until the first turn is recorded.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if err := c.require("open", StateIdle, StateError); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.opened || len(c.session.Turns) > 0 {
		err := &TransitionError{From: c.session.State, Action: "open again"}
		c.mu.Unlock()
		return err
	}
	ep := c.beginCycle()
	c.setState(StateAwaitingAITurn)
	brief := c.session.Brief
	c.mu.Unlock()

	opCtx, done := c.opContext(ctx)
	text, err := c.exchange.RequestOpeningTurn(opCtx, brief)
	done()

	c.mu.Lock()
	if c.stale(ep) {
		c.mu.Unlock()
		c.logger.Debug("Discarding opening after end", "session_id", c.session.ID)
		return ErrSessionEnded
	}
	if err != nil {
		c.fail(err)
		c.mu.Unlock()
		return err
	}
	c.opened = true

	if !brief.Mode.Conversational() {
		c.session.Script = text
		c.emit(Event{Type: EventScript, Text: text})
		c.setState(StateIdle)
		c.mu.Unlock()
		return nil
	}

	turn := c.session.AddTurn(schema.SpeakerAI, text)
	c.emit(Event{Type: EventTurn, Turn: &turn})
	spCtx := c.startSpeaking(ctx)
	c.mu.Unlock()

	c.speak(spCtx, ep, text)
	return nil
}

// StartCapture begins a capture cycle. It is rejected unless the session is
// idle or recovering from an error.
func (c *Controller) StartCapture(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("start capture", StateIdle, StateError); err != nil {
		return err
	}

	c.acc.Reset()
	if err := c.recognizer.Start(ctx, RecognitionOptions{Continuous: true, Locale: c.locale}); err != nil {
		c.logger.Error("Recognizer failed to start", "session_id", c.session.ID, "error", err)
		return fmt.Errorf("start recognition: %w", err)
	}
	c.beginCycle()
	c.captureStart = time.Now()
	c.setState(StateCapturing)
	return nil
}

// OnPartialResult folds a partial recognition result into the transcript.
// Results outside a capture cycle are ignored.
func (c *Controller) OnPartialResult(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State != StateCapturing && c.session.State != StateProcessingUserTurn {
		return
	}
	c.acc.OnPartialResult(raw)
	c.emit(Event{Type: EventTranscript, Text: c.acc.Snapshot()})
}

// OnFinalResult folds the recognizer's final result for an utterance.
func (c *Controller) OnFinalResult(raw string) {
	c.OnPartialResult(raw)
}

// StopCapture ends the capture cycle. After the settle delay the transcript
// is committed as a user turn; in conversational modes the trainer's reply
// is then requested and spoken before StopCapture returns.
func (c *Controller) StopCapture(ctx context.Context) (*TurnResult, error) {
	c.mu.Lock()
	if err := c.require("stop capture", StateCapturing); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.recognizer.Stop(); err != nil {
		c.logger.Warn("Recognizer failed to stop", "session_id", c.session.ID, "error", err)
	}
	c.session.CaptureTime += time.Since(c.captureStart)
	ep := c.beginCycle()
	c.setState(StateProcessingUserTurn)
	c.mu.Unlock()

	// Trailing partials keep arriving through OnPartialResult while we wait.
	timer := time.NewTimer(c.settleDelay)
	select {
	case <-timer.C:
	case <-c.ctx.Done():
		timer.Stop()
		return nil, ErrSessionEnded
	}

	c.mu.Lock()
	if c.stale(ep) {
		c.mu.Unlock()
		return nil, ErrSessionEnded
	}

	text := c.acc.Commit()
	if text == "" {
		c.logger.Debug("Empty capture", "session_id", c.session.ID)
		c.setState(StateIdle)
		c.mu.Unlock()
		return &TurnResult{Empty: true}, nil
	}

	history := append([]schema.Turn(nil), c.session.Turns...)
	userTurn := c.session.AddTurn(schema.SpeakerUser, text)
	c.emit(Event{Type: EventTurn, Turn: &userTurn})
	result := &TurnResult{User: &userTurn}

	brief := c.session.Brief
	if !brief.Mode.Conversational() {
		c.setState(StateIdle)
		c.mu.Unlock()
		return result, nil
	}

	c.setState(StateAwaitingAITurn)
	c.mu.Unlock()

	opCtx, done := c.opContext(ctx)
	reply, err := c.exchange.RequestNextTurn(opCtx, brief, history, text)
	done()

	c.mu.Lock()
	if c.stale(ep) {
		c.mu.Unlock()
		c.logger.Debug("Discarding trainer reply after end", "session_id", c.session.ID)
		return result, ErrSessionEnded
	}
	if err != nil {
		c.fail(err)
		c.mu.Unlock()
		return result, err
	}

	aiTurn := c.session.AddTurn(schema.SpeakerAI, reply)
	c.emit(Event{Type: EventTurn, Turn: &aiTurn})
	result.AI = &aiTurn
	spCtx := c.startSpeaking(ctx)
	c.mu.Unlock()

	outcome := c.speak(spCtx, ep, reply)
	result.Playback = &outcome
	return result, nil
}

// ReadScript plays the speech-mode practice script in the trainer's voice.
func (c *Controller) ReadScript(ctx context.Context) (playback.Outcome, error) {
	c.mu.Lock()
	if err := c.require("read script", StateIdle, StateError); err != nil {
		c.mu.Unlock()
		return playback.Outcome{}, err
	}
	script := c.session.Script
	if script == "" {
		c.mu.Unlock()
		return playback.Outcome{}, &ValidationError{Field: "script", Message: "no practice script yet"}
	}
	ep := c.beginCycle()
	spCtx := c.startSpeaking(ctx)
	c.mu.Unlock()

	return c.speak(spCtx, ep, script), nil
}

// Pause pauses trainer speech. It is a no-op unless speaking.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State == StateAISpeaking {
		c.playback.Pause()
	}
}

// Resume resumes paused trainer speech. It is a no-op unless speaking.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State == StateAISpeaking {
		c.playback.Resume()
	}
}

// StopSpeaking cuts the trainer's speech short; the session returns to idle
// once playback has unwound.
func (c *Controller) StopSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State == StateAISpeaking {
		if c.stopSpeech != nil {
			c.stopSpeech()
		}
		c.playback.Stop()
	}
}

// End moves the session to the ended state without waiting for in-flight
// work. Capture and playback are stopped; any outstanding exchange result is
// discarded when it arrives.
func (c *Controller) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.State {
	case StateEnded:
		return ErrSessionEnded
	case StateCapturing:
		if err := c.recognizer.Stop(); err != nil {
			c.logger.Warn("Recognizer failed to stop", "session_id", c.session.ID, "error", err)
		}
		c.session.CaptureTime += time.Since(c.captureStart)
	case StateAISpeaking:
		c.playback.Stop()
	}

	c.epoch++
	c.cancel()
	c.setState(StateEnded)
	return nil
}

// startSpeaking enters the speaking state and returns the context playback
// runs under. StopSpeaking and End cancel it. Must be called with c.mu held.
func (c *Controller) startSpeaking(ctx context.Context) context.Context {
	opCtx, done := c.opContext(ctx)
	spCtx, cancel := context.WithCancel(opCtx)
	c.stopSpeech = func() {
		cancel()
		done()
	}
	c.setState(StateAISpeaking)
	return spCtx
}

// speak plays text and returns the session to idle unless the cycle went
// stale meanwhile.
func (c *Controller) speak(spCtx context.Context, ep uint64, text string) playback.Outcome {
	outcome := c.playback.Speak(spCtx, text, c.session.Brief.Trainer.Voice)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopSpeech != nil {
		c.stopSpeech()
		c.stopSpeech = nil
	}

	if outcome.Silent() {
		c.logger.Warn("Trainer speech not played", "session_id", c.session.ID, "code", outcome.Code, "error", outcome.Err)
	} else {
		c.logger.Debug("Trainer speech finished", "session_id", c.session.ID, "code", outcome.Code)
	}
	c.emit(Event{Type: EventPlayback, Outcome: &outcome})

	if !c.stale(ep) && c.session.State == StateAISpeaking {
		c.setState(StateIdle)
	}
	return outcome
}

// opContext derives a context that is cancelled with either ctx or the
// session.
func (c *Controller) opContext(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// The helpers below must be called with c.mu held.

func (c *Controller) require(action string, allowed ...State) error {
	for _, s := range allowed {
		if c.session.State == s {
			return nil
		}
	}
	if c.session.State == StateEnded {
		return ErrSessionEnded
	}
	return &TransitionError{From: c.session.State, Action: action}
}

func (c *Controller) beginCycle() uint64 {
	c.epoch++
	return c.epoch
}

func (c *Controller) stale(ep uint64) bool {
	return c.epoch != ep || c.session.State == StateEnded
}

func (c *Controller) fail(err error) {
	c.logger.Error("Trainer turn failed", "session_id", c.session.ID, "error", err)
	c.emit(Event{Type: EventError, Err: err})
	c.setState(StateError)
}

func (c *Controller) setState(s State) {
	if c.session.State == s {
		return
	}
	c.logger.Debug("Session transition", "session_id", c.session.ID, "from", c.session.State, "to", s)
	c.session.State = s
	c.emit(Event{Type: EventState, State: s})
}

func (c *Controller) emit(ev Event) {
	if c.sink == nil {
		return
	}
	ev.SessionID = c.session.ID
	if ev.State == "" {
		ev.State = c.session.State
	}
	c.sink(ev)
}
