package server

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/google/uuid"

	"skillup/internal/core"
	"skillup/internal/playback"
)

var (
	_ core.Recognizer = (*wsRecognizer)(nil)
	_ playback.Player = (*wsPlayer)(nil)
)

// wsRecognizer drives the speech recognizer running in the client. Results
// come back as partial and final frames.
type wsRecognizer struct {
	conn      *connection
	supported bool
}

func (r *wsRecognizer) Supported() bool { return r.supported }

func (r *wsRecognizer) Start(ctx context.Context, opts core.RecognitionOptions) error {
	return r.conn.trySend(RecognitionCommand{
		Type:       TypeRecognition,
		Action:     "start",
		Continuous: opts.Continuous,
		Locale:     opts.Locale,
	})
}

func (r *wsRecognizer) Stop() error {
	return r.conn.trySend(RecognitionCommand{Type: TypeRecognition, Action: "stop"})
}

// wsPlayer plays audio on the client. Play sends the audio frame and blocks
// until the client acknowledges it with playback_done. Audio without data or
// a URL has nothing for the client to play and is timed locally instead.
type wsPlayer struct {
	conn  *connection
	local *playback.SilentPlayer

	mu      sync.Mutex
	audioID string
	doneCh  chan struct{}
	isLocal bool
}

func newWSPlayer(conn *connection) *wsPlayer {
	return &wsPlayer{conn: conn, local: playback.NewSilentPlayer()}
}

func (p *wsPlayer) Play(ctx context.Context, audio *playback.Audio) error {
	id := uuid.NewString()
	isLocal := len(audio.Data) == 0 && audio.URL == ""
	doneCh := make(chan struct{})

	p.mu.Lock()
	p.audioID, p.doneCh, p.isLocal = id, doneCh, isLocal
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.audioID, p.doneCh, p.isLocal = "", nil, false
		p.mu.Unlock()
	}()

	msg := AudioMessage{
		Type:       TypeAudio,
		AudioID:    id,
		Format:     audio.Format,
		URL:        audio.URL,
		DurationMS: audio.Duration.Milliseconds(),
	}
	if len(audio.Data) > 0 {
		msg.DataB64 = base64.StdEncoding.EncodeToString(audio.Data)
	}
	if err := p.conn.send(msg); err != nil {
		return err
	}

	if isLocal {
		return p.local.Play(ctx, audio)
	}

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		_ = p.conn.trySend(PlaybackControl{Type: TypePlayback, Action: "stop", AudioID: id})
		return ctx.Err()
	}
}

func (p *wsPlayer) Pause() error {
	return p.control("pause")
}

func (p *wsPlayer) Resume() error {
	return p.control("resume")
}

func (p *wsPlayer) control(action string) error {
	p.mu.Lock()
	id, isLocal := p.audioID, p.isLocal
	p.mu.Unlock()

	if id == "" {
		return nil
	}
	if isLocal {
		if action == "pause" {
			return p.local.Pause()
		}
		return p.local.Resume()
	}
	return p.conn.trySend(PlaybackControl{Type: TypePlayback, Action: action, AudioID: id})
}

// done marks audioID as played. Stale or unknown ids are ignored.
func (p *wsPlayer) done(audioID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doneCh != nil && p.audioID == audioID {
		close(p.doneCh)
		p.doneCh = nil
	}
}
