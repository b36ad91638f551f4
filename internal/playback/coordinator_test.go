package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"skillup/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVoice = schema.VoiceProfile{VoiceID: "en-IN-rohan", Style: "Promo", Rate: -1}

// fakeSynth returns audio of a fixed duration, optionally blocking until
// release is closed.
type fakeSynth struct {
	duration time.Duration
	err      error
	release  chan struct{}
	calls    int32
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, voice schema.VoiceProfile) (*Audio, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Audio{Format: "wav", Duration: f.duration}, nil
}

type failingPlayer struct{ err error }

func (p failingPlayer) Play(ctx context.Context, audio *Audio) error { return p.err }
func (p failingPlayer) Pause() error                                 { return nil }
func (p failingPlayer) Resume() error                                { return nil }

func speakAsync(c *Coordinator, ctx context.Context, text string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() { ch <- c.Speak(ctx, text, testVoice) }()
	return ch
}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return")
		return Outcome{}
	}
}

func TestCoordinator_Completed(t *testing.T) {
	c := NewCoordinator(&fakeSynth{duration: 10 * time.Millisecond}, NewSilentPlayer())

	out := c.Speak(context.Background(), "Hello there", testVoice)

	assert.Equal(t, Completed, out.Code)
	assert.NoError(t, out.Err)
	assert.False(t, out.Silent())
	assert.False(t, c.Speaking())
}

func TestCoordinator_SkipsEmptyText(t *testing.T) {
	synth := &fakeSynth{}
	c := NewCoordinator(synth, NewSilentPlayer())

	out := c.Speak(context.Background(), "   ", testVoice)

	assert.Equal(t, Skipped, out.Code)
	assert.Equal(t, int32(0), synth.calls)
}

func TestCoordinator_SynthesisFailureReleasesDevice(t *testing.T) {
	synth := &fakeSynth{err: errors.New("provider down")}
	c := NewCoordinator(synth, NewSilentPlayer())

	out := c.Speak(context.Background(), "Hello", testVoice)

	assert.Equal(t, SynthesisFailed, out.Code)
	assert.EqualError(t, out.Err, "provider down")
	assert.True(t, out.Silent())
	assert.False(t, c.Speaking())

	synth.err = nil
	assert.Equal(t, Completed, c.Speak(context.Background(), "Again", testVoice).Code)
}

func TestCoordinator_PlaybackFailure(t *testing.T) {
	c := NewCoordinator(&fakeSynth{}, failingPlayer{err: errors.New("no device")})

	out := c.Speak(context.Background(), "Hello", testVoice)

	assert.Equal(t, PlaybackFailed, out.Code)
	assert.Error(t, out.Err)
	assert.False(t, c.Speaking())
}

func TestCoordinator_StopDuringPlayback(t *testing.T) {
	c := NewCoordinator(&fakeSynth{duration: time.Hour}, NewSilentPlayer())

	ch := speakAsync(c, context.Background(), "A very long speech")
	require.Eventually(t, c.Speaking, time.Second, time.Millisecond)

	c.Stop()
	c.Stop()

	out := waitOutcome(t, ch)
	assert.Equal(t, Stopped, out.Code)
	assert.False(t, c.Speaking())
}

func TestCoordinator_StopDuringSynthesis(t *testing.T) {
	synth := &fakeSynth{release: make(chan struct{})}
	c := NewCoordinator(synth, NewSilentPlayer())

	ch := speakAsync(c, context.Background(), "Hello")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&synth.calls) == 1 }, time.Second, time.Millisecond)

	c.Stop()

	assert.Equal(t, Stopped, waitOutcome(t, ch).Code)
}

func TestCoordinator_StopWhenIdleIsNoop(t *testing.T) {
	c := NewCoordinator(&fakeSynth{}, NewSilentPlayer())

	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
		c.Pause()
		c.Resume()
	})
	assert.False(t, c.Speaking())
	assert.False(t, c.Paused())
}

func TestCoordinator_BusyWhileSpeaking(t *testing.T) {
	c := NewCoordinator(&fakeSynth{duration: time.Hour}, NewSilentPlayer())

	ch := speakAsync(c, context.Background(), "First")
	require.Eventually(t, c.Speaking, time.Second, time.Millisecond)

	second := c.Speak(context.Background(), "Second", testVoice)
	assert.Equal(t, Busy, second.Code)

	c.Stop()
	assert.Equal(t, Stopped, waitOutcome(t, ch).Code)
}

func TestCoordinator_PauseResume(t *testing.T) {
	c := NewCoordinator(&fakeSynth{duration: 50 * time.Millisecond}, NewSilentPlayer())

	ch := speakAsync(c, context.Background(), "Pause me")
	require.Eventually(t, c.Speaking, time.Second, time.Millisecond)

	c.Pause()
	c.Pause()
	assert.True(t, c.Paused())

	// Paused playback must not finish on its own.
	select {
	case <-ch:
		t.Fatal("paused playback completed")
	case <-time.After(120 * time.Millisecond):
	}

	c.Resume()
	c.Resume()
	assert.False(t, c.Paused())

	assert.Equal(t, Completed, waitOutcome(t, ch).Code)
}

func TestCoordinator_PauseDuringSynthesisHoldsPlayback(t *testing.T) {
	synth := &fakeSynth{duration: time.Millisecond, release: make(chan struct{})}
	c := NewCoordinator(synth, NewSilentPlayer())

	ch := speakAsync(c, context.Background(), "Hold")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&synth.calls) == 1 }, time.Second, time.Millisecond)

	c.Pause()
	close(synth.release)

	select {
	case <-ch:
		t.Fatal("playback started while paused")
	case <-time.After(50 * time.Millisecond):
	}

	c.Resume()
	assert.Equal(t, Completed, waitOutcome(t, ch).Code)
}

func TestCoordinator_CallerCancelIsStopped(t *testing.T) {
	c := NewCoordinator(&fakeSynth{duration: time.Hour}, NewSilentPlayer())
	ctx, cancel := context.WithCancel(context.Background())

	ch := speakAsync(c, ctx, "Cancel me")
	require.Eventually(t, c.Speaking, time.Second, time.Millisecond)
	cancel()

	assert.Equal(t, Stopped, waitOutcome(t, ch).Code)
}

func TestSilentSynthesizer_Duration(t *testing.T) {
	audio, err := SilentSynthesizer{WordsPerMinute: 60}.Synthesize(context.Background(), "one two three", testVoice)

	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, audio.Duration)
	assert.Empty(t, audio.Data)
}
