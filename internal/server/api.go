package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"skillup/internal/repository"
	"skillup/pkg/schema"
)

// UserHeader names the caller. Authentication happens in front of this
// server.
const UserHeader = "X-User-ID"

type userKey struct{}

type apiError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Type: TypeError, Code: code, Message: message})
}

// withUser requires the user header and stores the user id in the request
// context.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(UserHeader))
		if user == "" || len(user) > schema.UserIDMax {
			writeError(w, http.StatusUnauthorized, "missing_user", UserHeader+" header is required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	}
}

func userFrom(r *http.Request) string {
	user, _ := r.Context().Value(userKey{}).(string)
	return user
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("HTTP request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.lifecycle.Active(),
	})
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"personas": s.lifecycle.Personas().All()})
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	recs, err := s.lifecycle.ListFeedback(r.Context(), userFrom(r))
	if err != nil {
		s.logger.Error("Failed to list feedback", "user_id", userFrom(r), "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": recs})
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lifecycle.GetFeedback(r.Context(), userFrom(r), r.PathValue("id"))
	if err != nil {
		s.feedbackError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := s.lifecycle.DeleteFeedback(r.Context(), userFrom(r), r.PathValue("id")); err != nil {
		s.feedbackError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) feedbackError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "feedback not found")
		return
	}
	s.logger.Error("Feedback request failed", "user_id", userFrom(r), "id", r.PathValue("id"), "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "feedback request failed")
}
