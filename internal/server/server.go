// Package server exposes practice sessions over a websocket and stored
// feedback over a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"skillup/internal/core"
	"skillup/internal/playback"
)

// Options tunes the server. Zero values take the defaults below.
type Options struct {
	PingInterval     time.Duration // default 20s; reads time out after three missed pongs
	WriteTimeout     time.Duration // default 5s
	HandshakeTimeout time.Duration // default 10s, for the hello frame
	MaxMessageBytes  int64         // default 64 KiB
	OutboundQueue    int           // default 256 frames
	AllowedOrigins   []string      // empty allows any origin
}

func (o *Options) setDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
	if o.OutboundQueue <= 0 {
		o.OutboundQueue = 256
	}
}

// Server serves the practice websocket and the feedback API.
type Server struct {
	lifecycle *core.Lifecycle
	synth     playback.Synthesizer
	logger    core.Logger
	opts      Options
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
}

// New creates a server. synth voices the trainer for every connection.
func New(lc *core.Lifecycle, synth playback.Synthesizer, logger core.Logger, opts Options) *Server {
	opts.setDefaults()
	s := &Server{
		lifecycle: lc,
		synth:     synth,
		logger:    logger,
		opts:      opts,
		mux:       http.NewServeMux(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /ws/practice", s.handlePractice)
	s.mux.HandleFunc("GET /api/personas", s.handlePersonas)
	s.mux.HandleFunc("GET /api/feedback", s.withUser(s.handleListFeedback))
	s.mux.HandleFunc("GET /api/feedback/{id}", s.withUser(s.handleGetFeedback))
	s.mux.HandleFunc("DELETE /api/feedback/{id}", s.withUser(s.handleDeleteFeedback))
}

// Handler returns the root handler with request ids and access logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", "addr", listener.Addr().String())
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Server shutting down", "active_sessions", s.lifecycle.Active())
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	newConnection(s, ws).serve()
}

func (s *Server) originAllowed(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
