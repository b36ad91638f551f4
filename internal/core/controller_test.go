package core

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillup/internal/playback"
	"skillup/pkg/schema"
)

const testSettle = 10 * time.Millisecond

type harness struct {
	ctrl       *Controller
	exchange   *MockTurnExchange
	recognizer *fakeRecognizer
	playback   *fakePlayback
	events     *eventLog
}

func newHarness(t *testing.T, mode schema.Mode, settle time.Duration) *harness {
	t.Helper()
	h := &harness{
		exchange:   NewMockTurnExchange("Interesting. But what about inflation?"),
		recognizer: &fakeRecognizer{},
		playback:   &fakePlayback{},
		events:     &eventLog{},
	}
	session := NewSession("SES-test", "alice", testBrief(mode))
	h.ctrl = NewController(session, h.exchange, h.recognizer, h.playback, ControllerOptions{
		SettleDelay: settle,
		Locale:      "en-IN",
		Sink:        h.events.sink,
	})
	return h
}

func (h *harness) say(t *testing.T, partials ...string) {
	t.Helper()
	require.NoError(t, h.ctrl.StartCapture(context.Background()))
	for _, p := range partials {
		h.ctrl.OnPartialResult(p)
	}
}

func stopAsync(ctrl *Controller) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := ctrl.StopCapture(context.Background())
		done <- err
	}()
	return done
}

func waitState(t *testing.T, ctrl *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return ctrl.State() == want }, 2*time.Second, time.Millisecond,
		"state never reached %s (at %s)", want, ctrl.State())
}

func TestController_CaptureCommitsUserTurnAndRequestsReply(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)

	h.say(t, "The", "The economy", "The economy is improving")
	result, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	require.NotNil(t, result.User)
	assert.Equal(t, "The economy is improving", result.User.Text)
	assert.Equal(t, schema.SpeakerUser, result.User.Speaker)

	_, nextCalls, _ := h.exchange.Counts()
	assert.Equal(t, 1, nextCalls)
	assert.Empty(t, h.exchange.LastHistory)
	assert.Equal(t, "The economy is improving", h.exchange.LastUserTurn)

	require.NotNil(t, result.AI)
	assert.Equal(t, "Interesting. But what about inflation?", result.AI.Text)
	require.NotNil(t, result.Playback)
	assert.Equal(t, playback.Completed, result.Playback.Code)
	assert.Equal(t, []string{"Interesting. But what about inflation?"}, h.playback.spokenTexts())

	turns := h.ctrl.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, schema.SpeakerUser, turns[0].Speaker)
	assert.Equal(t, schema.SpeakerAI, turns[1].Speaker)
	assert.Equal(t, StateIdle, h.ctrl.State())

	starts, stops := h.recognizer.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
	assert.Equal(t, "en-IN", h.recognizer.locale)
}

func TestController_StateSequenceForOneTurn(t *testing.T) {
	h := newHarness(t, schema.ModeInterview, testSettle)

	h.say(t, "I led the migration")
	_, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{
		StateCapturing,
		StateProcessingUserTurn,
		StateAwaitingAITurn,
		StateAISpeaking,
		StateIdle,
	}, h.events.states())
	assert.Len(t, h.events.ofType(EventTurn), 2)
	assert.Len(t, h.events.ofType(EventPlayback), 1)
	assert.NotEmpty(t, h.events.ofType(EventTranscript))
}

func TestController_SecondTurnCarriesHistory(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.exchange.NextTurnTexts = []string{"First reply.", "Second reply."}

	h.say(t, "opening argument")
	_, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	h.say(t, "follow up")
	result, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Second reply.", result.AI.Text)
	require.Len(t, h.exchange.LastHistory, 2)
	assert.Equal(t, "opening argument", h.exchange.LastHistory[0].Text)
	assert.Equal(t, "First reply.", h.exchange.LastHistory[1].Text)
	assert.Equal(t, "follow up", h.exchange.LastUserTurn)
}

func TestController_WhitespaceCaptureIsNoop(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)

	h.say(t, "   ", "  ")
	result, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Empty)
	assert.Nil(t, result.User)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Empty(t, h.ctrl.Turns())
	_, nextCalls, _ := h.exchange.Counts()
	assert.Zero(t, nextCalls)
	assert.Empty(t, h.playback.spokenTexts())
}

func TestController_ReplyFailureIsResumable(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.exchange.NextTurnErr = errors.New("503 from provider")

	h.say(t, "Taxes should be lower")
	result, err := h.ctrl.StopCapture(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTurnGenerationFailed)
	assert.Equal(t, StateError, h.ctrl.State())
	require.NotNil(t, result)
	assert.Nil(t, result.AI)

	turns := h.ctrl.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, schema.SpeakerUser, turns[0].Speaker)
	assert.Empty(t, h.playback.spokenTexts())
	assert.Len(t, h.events.ofType(EventError), 1)

	require.NoError(t, h.ctrl.StartCapture(context.Background()))
	assert.Equal(t, StateCapturing, h.ctrl.State())
}

func TestController_TrailingPartialDuringSettleIsKept(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, 200*time.Millisecond)

	h.say(t, "growth is")
	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateProcessingUserTurn)
	h.ctrl.OnFinalResult("growth is slowing")

	require.NoError(t, <-done)
	turns := h.ctrl.Turns()
	require.NotEmpty(t, turns)
	assert.Equal(t, "growth is slowing", turns[0].Text)
}

func TestController_MutualExclusionRejections(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, 200*time.Millisecond)

	_, err := h.ctrl.StopCapture(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition, "stop without capture")

	h.say(t, "first")
	assert.ErrorIs(t, h.ctrl.StartCapture(context.Background()), ErrInvalidTransition, "start while capturing")

	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateProcessingUserTurn)

	_, err = h.ctrl.StopCapture(context.Background())
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr, "second stop while processing")
	assert.Equal(t, StateProcessingUserTurn, tErr.From)
	assert.ErrorIs(t, h.ctrl.StartCapture(context.Background()), ErrInvalidTransition, "start while processing")

	require.NoError(t, <-done)
	starts, _ := h.recognizer.counts()
	assert.Equal(t, 1, starts)
}

func TestController_StartCaptureRejectedWhileSpeaking(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.playback.hold = true

	h.say(t, "an argument")
	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateAISpeaking)

	assert.ErrorIs(t, h.ctrl.StartCapture(context.Background()), ErrInvalidTransition)

	h.ctrl.StopSpeaking()
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, h.ctrl.State())
	require.NoError(t, h.ctrl.StartCapture(context.Background()))
}

func TestController_PartialsIgnoredOutsideCapture(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)

	h.ctrl.OnPartialResult("stray words")
	h.say(t, "real words")
	_, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "real words", h.ctrl.Turns()[0].Text)
	for _, ev := range h.events.ofType(EventTranscript) {
		assert.NotContains(t, ev.Text, "stray")
	}
}

func TestController_RecognizerStartFailureKeepsState(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.recognizer.startErr = errors.New("microphone denied")

	err := h.ctrl.StartCapture(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestController_EndWhileAwaitingDiscardsLateReply(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	gate := make(chan struct{})
	h.exchange.NextTurnGate = gate

	h.say(t, "my point")
	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateAwaitingAITurn)

	require.NoError(t, h.ctrl.End())
	assert.Equal(t, StateEnded, h.ctrl.State(), "end must not wait for the exchange")

	close(gate)
	assert.ErrorIs(t, <-done, ErrSessionEnded)

	assert.Equal(t, StateEnded, h.ctrl.State())
	turns := h.ctrl.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, schema.SpeakerUser, turns[0].Speaker)
	assert.Empty(t, h.playback.spokenTexts())
	assert.Zero(t, h.playback.stopCount(), "nothing was playing")
}

func TestController_EndDuringSettleDelay(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, time.Hour)

	h.say(t, "unfinished thought")
	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateProcessingUserTurn)

	require.NoError(t, h.ctrl.End())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionEnded)
	case <-time.After(2 * time.Second):
		t.Fatal("StopCapture kept waiting after end")
	}
	assert.Empty(t, h.ctrl.Turns())
	_, nextCalls, _ := h.exchange.Counts()
	assert.Zero(t, nextCalls)
}

func TestController_EndWhileCapturingStopsRecognizer(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.say(t, "half a sentence")

	require.NoError(t, h.ctrl.End())

	_, stops := h.recognizer.counts()
	assert.Equal(t, 1, stops)
	assert.Zero(t, h.playback.stopCount())
	assert.Empty(t, h.ctrl.Turns())
	assert.Greater(t, h.ctrl.Session().CaptureTime, time.Duration(0))
}

func TestController_EndWhileSpeakingStopsPlaybackOnce(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.playback.hold = true

	h.say(t, "an argument")
	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateAISpeaking)

	require.NoError(t, h.ctrl.End())
	require.NoError(t, <-done)

	assert.Equal(t, 1, h.playback.stopCount())
	assert.Equal(t, StateEnded, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.End(), ErrSessionEnded)
	assert.Equal(t, 1, h.playback.stopCount())
}

func TestController_RejectsWorkAfterEnd(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	require.NoError(t, h.ctrl.End())

	assert.ErrorIs(t, h.ctrl.StartCapture(context.Background()), ErrSessionEnded)
	assert.ErrorIs(t, h.ctrl.Open(context.Background()), ErrSessionEnded)
	_, err := h.ctrl.StopCapture(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestController_OpenConversational(t *testing.T) {
	h := newHarness(t, schema.ModeInterview, testSettle)

	require.NoError(t, h.ctrl.Open(context.Background()))

	turns := h.ctrl.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, schema.SpeakerAI, turns[0].Speaker)
	assert.Equal(t, []string{"Welcome. Let us begin."}, h.playback.spokenTexts())
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, "en-IN-rohan", h.playback.voices[0].VoiceID)

	assert.ErrorIs(t, h.ctrl.Open(context.Background()), ErrInvalidTransition)
}

func TestController_OpenFailureCanBeRetried(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.exchange.OpeningErr = errors.New("timeout")

	err := h.ctrl.Open(context.Background())
	assert.ErrorIs(t, err, ErrTurnGenerationFailed)
	assert.Equal(t, StateError, h.ctrl.State())
	assert.Empty(t, h.ctrl.Turns())

	h.exchange.OpeningErr = nil
	require.NoError(t, h.ctrl.Open(context.Background()))
	assert.Len(t, h.ctrl.Turns(), 1)
}

func TestController_OpenRejectedOnceTurnsExist(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.exchange.OpeningErr = errors.New("timeout")
	require.Error(t, h.ctrl.Open(context.Background()))

	h.say(t, "I think cars should stay")
	_, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)
	require.Len(t, h.ctrl.Turns(), 2)

	h.exchange.OpeningErr = nil
	err = h.ctrl.Open(context.Background())

	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, StateIdle, tErr.From)
	assert.Len(t, h.ctrl.Turns(), 2)
	opening, _, _ := h.exchange.Counts()
	assert.Equal(t, 1, opening)
}

// Repeated opens on an opened session run alongside capture cycles; the
// rejection must read the state under the lock.
func TestController_OpenAgainDuringCaptureCycles(t *testing.T) {
	h := newHarness(t, schema.ModeSpeech, time.Millisecond)
	require.NoError(t, h.ctrl.Open(context.Background()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			err := h.ctrl.Open(context.Background())
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if h.ctrl.StartCapture(context.Background()) == nil {
				h.ctrl.OnPartialResult("practice line")
				_, _ = h.ctrl.StopCapture(context.Background())
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestController_SpeechScriptIsNotATurn(t *testing.T) {
	h := newHarness(t, schema.ModeSpeech, testSettle)
	h.exchange.OpeningText = "Good morning everyone. Today I will talk about habits."

	_, err := h.ctrl.ReadScript(context.Background())
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr, "no script yet")

	require.NoError(t, h.ctrl.Open(context.Background()))

	session := h.ctrl.Session()
	assert.Equal(t, "Good morning everyone. Today I will talk about habits.", session.Script)
	assert.Empty(t, session.Turns)
	assert.Empty(t, h.playback.spokenTexts(), "the script is not spoken automatically")
	assert.Equal(t, StateIdle, session.State)
	assert.Equal(t, []State{StateAwaitingAITurn, StateIdle}, h.events.states(), "capture is excluded while the script is fetched")
	assert.Len(t, h.events.ofType(EventScript), 1)

	outcome, err := h.ctrl.ReadScript(context.Background())
	require.NoError(t, err)
	assert.Equal(t, playback.Completed, outcome.Code)
	assert.Equal(t, []string{session.Script}, h.playback.spokenTexts())
	assert.Empty(t, h.ctrl.Turns())
}

func TestController_SpeechDeliveryHasNoReply(t *testing.T) {
	h := newHarness(t, schema.ModeSpeech, testSettle)

	h.say(t, "Good morning everyone")
	result, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	require.NotNil(t, result.User)
	assert.Nil(t, result.AI)
	assert.Equal(t, StateIdle, h.ctrl.State())
	_, nextCalls, _ := h.exchange.Counts()
	assert.Zero(t, nextCalls)
	assert.NotContains(t, h.events.states(), StateAwaitingAITurn)
}

func TestController_PauseResumeOnlyWhileSpeaking(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)

	h.ctrl.Pause()
	h.ctrl.Resume()
	h.ctrl.StopSpeaking()
	assert.Zero(t, h.playback.pauses)
	assert.Zero(t, h.playback.stopCount())

	h.playback.hold = true
	h.say(t, "argument")
	done := stopAsync(h.ctrl)
	waitState(t, h.ctrl, StateAISpeaking)

	h.ctrl.Pause()
	h.ctrl.Resume()
	h.ctrl.StopSpeaking()
	require.NoError(t, <-done)

	h.playback.mu.Lock()
	assert.Equal(t, 1, h.playback.pauses)
	assert.Equal(t, 1, h.playback.resumes)
	h.playback.mu.Unlock()
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestController_SilentPlaybackStillReturnsToIdle(t *testing.T) {
	h := newHarness(t, schema.ModeDebate, testSettle)
	h.playback.code = playback.SynthesisFailed

	h.say(t, "argument")
	result, err := h.ctrl.StopCapture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, playback.SynthesisFailed, result.Playback.Code)
	assert.True(t, result.Playback.Silent())
	assert.Len(t, h.ctrl.Turns(), 2, "the reply is kept as text")
	assert.Equal(t, StateIdle, h.ctrl.State())
}

// Random interleavings of user actions from concurrent goroutines must never
// produce overlapping exchange or playback calls.
func TestController_MutualExclusionProperty(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		r := rand.New(rand.NewSource(seed))
		probe := &activityProbe{}

		mock := NewMockTurnExchange("reply")
		if seed%5 == 0 {
			mock.NextTurnErr = errors.New("flaky")
		}
		exchange := &probedExchange{TurnExchange: mock, probe: probe, delay: time.Millisecond}
		pb := &fakePlayback{delay: 2 * time.Millisecond, probe: probe}
		events := &eventLog{}

		ctrl := NewController(NewSession("SES-prop", "alice", testBrief(schema.ModeDebate)),
			exchange, &fakeRecognizer{}, pb, ControllerOptions{SettleDelay: time.Millisecond, Sink: events.sink})

		var wg sync.WaitGroup
		for i := 0; i < 60; i++ {
			action := r.Intn(10)
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx := context.Background()
				switch action {
				case 0, 1, 2:
					_ = ctrl.StartCapture(ctx)
				case 3, 4:
					ctrl.OnPartialResult("some words")
				case 5, 6:
					_, _ = ctrl.StopCapture(ctx)
				case 7:
					_ = ctrl.Open(ctx)
				case 8:
					ctrl.StopSpeaking()
				case 9:
					ctrl.Pause()
					ctrl.Resume()
				}
			}()
			time.Sleep(time.Duration(r.Intn(1500)) * time.Microsecond)
		}
		if r.Intn(2) == 0 {
			_ = ctrl.End()
		}
		wg.Wait()

		assert.LessOrEqual(t, probe.peak(), 1, "seed %d: overlapping exchange/playback calls", seed)

		for _, turn := range ctrl.Turns() {
			assert.NotEmpty(t, turn.Text, "seed %d: empty turn recorded", seed)
		}

		final := ctrl.State()
		assert.Contains(t, []State{StateIdle, StateCapturing, StateError, StateEnded}, final, "seed %d", seed)
	}
}
