package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"skillup/internal/repository"
	"skillup/pkg/schema"
)

// DefaultInterviewTopic is used when an interview starts without a focus.
const DefaultInterviewTopic = "General Interview Practice"

// feedbackTimeout bounds the end-of-session feedback request.
const feedbackTimeout = 90 * time.Second

// LifecycleOptions configures a Lifecycle.
type LifecycleOptions struct {
	SettleDelay time.Duration
	Locale      string
	Logger      Logger
}

// Lifecycle starts and ends practice sessions and owns the registry of
// active controllers.
type Lifecycle struct {
	exchange TurnExchange
	store    repository.FeedbackStore
	personas *PersonaCatalog
	opts     LifecycleOptions
	logger   Logger

	mu     sync.Mutex
	active map[string]*Controller
	ended  map[string]bool
}

// NewLifecycle creates a lifecycle manager.
func NewLifecycle(exchange TurnExchange, store repository.FeedbackStore, personas *PersonaCatalog, opts LifecycleOptions) *Lifecycle {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if personas == nil {
		personas = DefaultPersonas()
	}
	return &Lifecycle{
		exchange: exchange,
		store:    store,
		personas: personas,
		opts:     opts,
		logger:   opts.Logger,
		active:   make(map[string]*Controller),
		ended:    make(map[string]bool),
	}
}

// Personas returns the trainer catalog.
func (l *Lifecycle) Personas() *PersonaCatalog {
	return l.personas
}

// StartSessionInput is what a client supplies to begin practicing.
type StartSessionInput struct {
	UserID      string
	Mode        schema.Mode
	Topic       string
	Context     string
	TrainerName string // empty picks the catalog default for the mode

	Recognizer Recognizer
	Playback   Playback
	Sink       EventSink
}

// StartSession validates the input, checks recognition support and creates
// an idle controller for the new session.
func (l *Lifecycle) StartSession(ctx context.Context, in StartSessionInput) (*Controller, error) {
	brief, err := l.brief(in)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.UserID) == "" || len(in.UserID) > schema.UserIDMax {
		return nil, &ValidationError{Field: "user_id", Message: fmt.Sprintf("must be 1-%d characters", schema.UserIDMax)}
	}
	if in.Recognizer == nil || !in.Recognizer.Supported() {
		return nil, ErrRecognitionUnsupported
	}
	if in.Playback == nil {
		return nil, &ValidationError{Field: "playback", Message: "a playback collaborator is required"}
	}

	id, err := schema.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	session := NewSession(id, in.UserID, brief)
	ctrl := NewController(session, l.exchange, in.Recognizer, in.Playback, ControllerOptions{
		SettleDelay: l.opts.SettleDelay,
		Locale:      l.opts.Locale,
		Sink:        in.Sink,
		Logger:      l.logger,
	})

	l.mu.Lock()
	l.active[id] = ctrl
	l.mu.Unlock()

	l.logger.Info("Session started",
		"session_id", id,
		"user_id", in.UserID,
		"mode", brief.Mode,
		"topic", brief.Topic,
		"trainer", brief.Trainer.Name)
	return ctrl, nil
}

func (l *Lifecycle) brief(in StartSessionInput) (Brief, error) {
	mode, err := schema.ParseMode(string(in.Mode))
	if err != nil {
		return Brief{}, &ValidationError{Field: "mode", Message: err.Error(), Err: err}
	}

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		if mode != schema.ModeInterview {
			return Brief{}, &ValidationError{Field: "topic", Message: fmt.Sprintf("a topic is required for %s practice", mode)}
		}
		topic = DefaultInterviewTopic
	}
	if len(topic) > schema.TopicMax {
		return Brief{}, &ValidationError{Field: "topic", Message: fmt.Sprintf("must be at most %d characters", schema.TopicMax)}
	}
	if len(in.Context) > schema.ContextMax {
		return Brief{}, &ValidationError{Field: "context", Message: fmt.Sprintf("must be at most %d characters", schema.ContextMax)}
	}

	trainer := l.personas.Default(mode)
	if in.TrainerName != "" {
		p, ok := l.personas.Lookup(in.TrainerName)
		if !ok {
			return Brief{}, &ValidationError{Field: "trainer", Message: fmt.Sprintf("unknown trainer %q", in.TrainerName)}
		}
		trainer = p
	}

	return Brief{
		Mode:    mode,
		Topic:   topic,
		Context: strings.TrimSpace(in.Context),
		Trainer: trainer,
	}, nil
}

// Get returns an active controller.
func (l *Lifecycle) Get(id string) (*Controller, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ctrl, ok := l.active[id]; ok {
		return ctrl, nil
	}
	if l.ended[id] {
		return nil, ErrSessionEnded
	}
	return nil, ErrSessionNotFound
}

// Active returns the number of running sessions.
func (l *Lifecycle) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// EndResult is what the user sees after a session.
type EndResult struct {
	Report *schema.FeedbackReport

	// Record is the stored record; nil when the report is a placeholder or
	// persisting failed.
	Record *schema.FeedbackRecord

	// PersistErr reports a storage failure. The report is still valid.
	PersistErr error
}

// EndSession forces the session to the ended state, requests feedback over
// the full turn log and stores it. A failed feedback request yields a
// placeholder report instead of an error; only ending the same session twice
// is an error.
func (l *Lifecycle) EndSession(ctx context.Context, ctrl *Controller) (*EndResult, error) {
	l.mu.Lock()
	if l.ended[ctrl.ID()] {
		l.mu.Unlock()
		return nil, ErrSessionEnded
	}
	l.ended[ctrl.ID()] = true
	delete(l.active, ctrl.ID())
	l.mu.Unlock()

	if err := ctrl.End(); err != nil {
		l.logger.Debug("Controller already ended", "session_id", ctrl.ID())
	}

	session := ctrl.Session()
	brief := ctrl.Brief()

	fctx, cancel := context.WithTimeout(ctx, feedbackTimeout)
	defer cancel()

	report, err := l.exchange.RequestFeedback(fctx, brief, session.Turns)
	if err != nil {
		l.logger.Error("Feedback generation failed", "session_id", session.ID, "error", err)
		return &EndResult{Report: schema.PlaceholderReport()}, nil
	}

	record := &schema.FeedbackRecord{
		UserID:      session.UserID,
		Type:        brief.Mode,
		Topic:       brief.Topic,
		TrainerName: brief.Trainer.Name,
		Feedback:    *report,
	}
	result := &EndResult{Report: report}

	if l.store == nil {
		return result, nil
	}
	if err := l.store.Save(ctx, record); err != nil {
		l.logger.Error("Failed to store feedback", "session_id", session.ID, "error", err)
		result.PersistErr = fmt.Errorf("store feedback: %w", err)
		return result, nil
	}

	l.logger.Info("Session ended",
		"session_id", session.ID,
		"turns", len(session.Turns),
		"feedback_id", record.ID,
		"average_score", report.AverageScore())
	result.Record = record
	return result, nil
}

// Discard ends a session without requesting feedback, for clients that
// went away. It is a no-op for a session that already ended.
func (l *Lifecycle) Discard(ctrl *Controller) {
	l.mu.Lock()
	if l.ended[ctrl.ID()] {
		l.mu.Unlock()
		return
	}
	l.ended[ctrl.ID()] = true
	delete(l.active, ctrl.ID())
	l.mu.Unlock()

	_ = ctrl.End()
	l.logger.Info("Session discarded", "session_id", ctrl.ID(), "turns", len(ctrl.Turns()))
}

// ListFeedback returns the user's stored feedback, newest first.
func (l *Lifecycle) ListFeedback(ctx context.Context, userID string) ([]schema.FeedbackRecord, error) {
	if l.store == nil {
		return []schema.FeedbackRecord{}, nil
	}
	recs, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return recs, nil
}

// GetFeedback returns one of the user's records.
func (l *Lifecycle) GetFeedback(ctx context.Context, userID, id string) (*schema.FeedbackRecord, error) {
	if l.store == nil {
		return nil, repository.ErrNotFound
	}
	return l.store.Get(ctx, userID, id)
}

// DeleteFeedback removes one of the user's records.
func (l *Lifecycle) DeleteFeedback(ctx context.Context, userID, id string) error {
	if l.store == nil {
		return repository.ErrNotFound
	}
	if err := l.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete feedback %s: %w", id, err)
	}
	l.logger.Info("Feedback deleted", "user_id", userID, "feedback_id", id)
	return nil
}
