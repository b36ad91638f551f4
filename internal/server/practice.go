package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"skillup/internal/core"
	"skillup/internal/playback"
)

var errOutboundFull = errors.New("outbound queue full")

// connection is one websocket practice session. The read loop dispatches
// client frames; a single writer goroutine owns every write to ws.
type connection struct {
	id     string
	ws     *websocket.Conn
	server *Server
	logger core.Logger

	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte

	ctrl   *core.Controller
	player *wsPlayer
	ops    sync.WaitGroup
}

func newConnection(s *Server, ws *websocket.Conn) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		id:     uuid.NewString(),
		ws:     ws,
		server: s,
		logger: s.logger,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, s.opts.OutboundQueue),
	}
}

func (c *connection) serve() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := c.writeLoop(); err != nil {
			c.logger.Debug("Websocket writer stopped", "connection_id", c.id, "error", err)
			_ = c.ws.Close()
		}
		c.cancel()
	}()
	defer func() {
		c.cancel()
		<-writerDone
	}()

	c.ws.SetReadLimit(c.server.opts.MaxMessageBytes)
	if err := c.start(); err != nil {
		c.sendError(err, true)
		return
	}

	ended := c.readLoop()
	if !ended {
		c.server.lifecycle.Discard(c.ctrl)
	}
	c.ops.Wait()
}

// start reads the hello frame and creates the session.
func (c *connection) start() error {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.server.opts.HandshakeTimeout))
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return badRequest("failed to read hello")
	}
	if messageType != websocket.TextMessage {
		return badRequest("first frame must be hello")
	}
	decoded, err := DecodeClientMessage(data)
	if err != nil {
		return err
	}
	hello, ok := decoded.(ClientHello)
	if !ok {
		return badRequest("first frame must be hello")
	}

	c.player = newWSPlayer(c)
	coordinator := playback.NewCoordinator(c.server.synth, c.player)
	ctrl, err := c.server.lifecycle.StartSession(c.ctx, core.StartSessionInput{
		UserID:      hello.UserID,
		Mode:        hello.Mode,
		Topic:       hello.Topic,
		Context:     hello.Context,
		TrainerName: hello.Trainer,
		Recognizer:  &wsRecognizer{conn: c, supported: hello.RecognitionSupported},
		Playback:    coordinator,
		Sink:        c.sink,
	})
	if err != nil {
		return err
	}
	c.ctrl = ctrl

	brief := ctrl.Brief()
	c.logger.Info("Practice connection started",
		"connection_id", c.id,
		"session_id", ctrl.ID(),
		"user_id", hello.UserID)
	return c.send(SessionStarted{
		Type:         TypeSessionStarted,
		SessionID:    ctrl.ID(),
		ConnectionID: c.id,
		Mode:         brief.Mode,
		Topic:        brief.Topic,
		Trainer:      brief.Trainer,
	})
}

// readLoop dispatches client frames until the connection drops or the
// session is ended by the client. It reports whether the session ended.
func (c *connection) readLoop() bool {
	pongWait := 3 * c.server.opts.PingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("Practice connection dropped", "connection_id", c.id, "error", err)
			}
			return false
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := DecodeClientMessage(data)
		if err != nil {
			c.sendError(err, false)
			continue
		}
		if c.dispatch(msg) {
			return true
		}
	}
}

// dispatch handles one client frame and reports whether the session ended.
func (c *connection) dispatch(msg any) bool {
	ctrl := c.ctrl

	switch m := msg.(type) {
	case ClientHello:
		c.sendError(badRequest("session already started"), false)
	case ClientText:
		if m.Type == TypeFinal {
			ctrl.OnFinalResult(m.Text)
		} else {
			ctrl.OnPartialResult(m.Text)
		}
	case ClientPlaybackDone:
		c.player.done(m.AudioID)
	case ClientCommand:
		switch m.Type {
		case TypeOpen:
			c.run(ctrl.Open)
		case TypeStartCapture:
			if err := ctrl.StartCapture(c.ctx); err != nil {
				c.sendError(err, false)
			}
		case TypeStopCapture:
			c.run(func(ctx context.Context) error {
				_, err := ctrl.StopCapture(ctx)
				return err
			})
		case TypeReadScript:
			c.run(func(ctx context.Context) error {
				_, err := ctrl.ReadScript(ctx)
				return err
			})
		case TypePause:
			ctrl.Pause()
		case TypeResume:
			ctrl.Resume()
		case TypeStopSpeaking:
			ctrl.StopSpeaking()
		case TypeEndSession:
			c.end()
			return true
		}
	}
	return false
}

// run executes a blocking controller operation off the read loop so that
// playback acknowledgements keep flowing while it waits.
func (c *connection) run(op func(ctx context.Context) error) {
	c.ops.Add(1)
	go func() {
		defer c.ops.Done()
		err := op(c.ctx)
		// Turn failures already reached the client as an error event.
		if err == nil || errors.Is(err, core.ErrSessionEnded) || errors.Is(err, core.ErrTurnGenerationFailed) {
			return
		}
		c.sendError(err, false)
	}()
}

func (c *connection) end() {
	result, err := c.server.lifecycle.EndSession(c.ctx, c.ctrl)
	if err != nil {
		c.sendError(err, false)
		return
	}

	msg := FeedbackMessage{
		Type:     TypeFeedback,
		Report:   result.Report,
		Degraded: result.Report.Degraded,
	}
	if result.Record != nil {
		msg.FeedbackID = result.Record.ID
		msg.Saved = true
	}
	if result.PersistErr != nil {
		c.logger.Warn("Feedback not saved", "session_id", c.ctrl.ID(), "error", result.PersistErr)
	}
	if err := c.send(msg); err != nil {
		c.logger.Warn("Failed to deliver feedback", "session_id", c.ctrl.ID(), "error", err)
	}
}

// sink forwards controller events. It runs under the controller lock, so it
// only ever enqueues without blocking.
func (c *connection) sink(ev core.Event) {
	var msg any
	switch ev.Type {
	case core.EventState:
		msg = StateMessage{Type: TypeState, State: ev.State}
	case core.EventTurn:
		msg = TurnMessage{Type: TypeTurn, Turn: *ev.Turn}
	case core.EventScript:
		msg = TextMessage{Type: TypeScript, Text: ev.Text}
	case core.EventTranscript:
		msg = TextMessage{Type: TypeTranscript, Text: ev.Text}
	case core.EventPlayback:
		out := PlaybackOutcome{Type: TypePlaybackOutcome, Code: string(ev.Outcome.Code), DurationMS: ev.Outcome.Duration.Milliseconds()}
		if ev.Outcome.Err != nil {
			out.Error = ev.Outcome.Err.Error()
		}
		msg = out
	case core.EventError:
		msg = ServerError{Type: TypeError, Code: errorCode(ev.Err), Message: ev.Err.Error()}
	default:
		return
	}
	if err := c.trySend(msg); err != nil {
		c.logger.Warn("Dropped session event", "connection_id", c.id, "event", ev.Type, "error", err)
	}
}

func (c *connection) sendError(err error, closeAfter bool) {
	msg := ServerError{Type: TypeError, Code: errorCode(err), Message: err.Error(), Close: closeAfter}
	var dErr *DecodeError
	if errors.As(err, &dErr) {
		msg.Code = dErr.Code
	}
	if sendErr := c.trySend(msg); sendErr != nil {
		c.logger.Warn("Dropped error frame", "connection_id", c.id, "error", sendErr)
	}
}

// send enqueues v, waiting for room in the queue.
func (c *connection) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// trySend enqueues v or fails immediately when the queue is full.
func (c *connection) trySend(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	default:
		return errOutboundFull
	}
}

// writeLoop owns all writes: queued frames, pings, and the close frame once
// the connection context ends.
func (c *connection) writeLoop() error {
	opts := c.server.opts
	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(opts.WriteTimeout))
			return c.ws.Close()
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(opts.WriteTimeout)); err != nil {
				return err
			}
		case data := <-c.out:
			if err := c.write(data); err != nil {
				return err
			}
		}
	}
}

// flush writes whatever is still queued when the connection shuts down.
func (c *connection) flush() {
	for {
		select {
		case data := <-c.out:
			if err := c.write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *connection) write(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.server.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
