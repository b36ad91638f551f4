package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"skillup/pkg/schema"
)

// CLIRenderer formats terminal output for a practice session.
type CLIRenderer interface {
	Trainer(name, text string) string
	Script(text string) string
	Notice(text string) string
	Feedback(report *schema.FeedbackReport, record *schema.FeedbackRecord) string
}

// TypedRecognizer stands in for a speech recognizer when the user types.
type TypedRecognizer struct {
	Listening bool
	Starts    int
}

func (r *TypedRecognizer) Supported() bool { return true }

func (r *TypedRecognizer) Start(ctx context.Context, opts RecognitionOptions) error {
	r.Listening = true
	r.Starts++
	return nil
}

func (r *TypedRecognizer) Stop() error {
	r.Listening = false
	return nil
}

// CLISession runs an interactive practice session in a terminal. Each typed
// line is one user turn.
type CLISession struct {
	Lifecycle *Lifecycle
	Input     StartSessionInput
	In        io.Reader
	Out       io.Writer
	Render    CLIRenderer
}

// NewCLISession creates a terminal session with a plain renderer.
func NewCLISession(lc *Lifecycle, input StartSessionInput, in io.Reader, out io.Writer) *CLISession {
	return &CLISession{Lifecycle: lc, Input: input, In: in, Out: out, Render: plainRenderer{}}
}

// Run executes the interactive loop until the user types /end or input ends,
// then prints the feedback report.
func (s *CLISession) Run(ctx context.Context) (*EndResult, error) {
	recognizer := &TypedRecognizer{}
	input := s.Input
	input.Recognizer = recognizer

	ctrl, err := s.Lifecycle.StartSession(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	brief := ctrl.Brief()

	s.print(s.Render.Notice(fmt.Sprintf("%s practice on %q with %s. Type your answer and press Enter; /end finishes.",
		brief.Mode, brief.Topic, brief.Trainer.Name)))

	if err := s.open(ctx, ctrl); err != nil {
		s.print(s.Render.Notice(fmt.Sprintf("Opening failed: %v", err)))
	}

	scanner := bufio.NewScanner(s.In)
	scanner.Buffer(make([]byte, 0, 64*1024), schema.TurnTextMax*4)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/end" || line == "/quit":
			return s.finish(ctx, ctrl)
		case line == "/script":
			if _, err := ctrl.ReadScript(ctx); err != nil {
				s.print(s.Render.Notice(err.Error()))
			}
			continue
		case line == "/open":
			if err := s.open(ctx, ctrl); err != nil {
				s.print(s.Render.Notice(fmt.Sprintf("Opening failed: %v", err)))
			}
			continue
		}

		if err := s.turn(ctx, ctrl, line); err != nil {
			if errors.Is(err, ErrSessionEnded) {
				break
			}
			s.print(s.Render.Notice(fmt.Sprintf("%v. Try again.", err)))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return s.finish(ctx, ctrl)
}

func (s *CLISession) open(ctx context.Context, ctrl *Controller) error {
	if err := ctrl.Open(ctx); err != nil {
		return err
	}
	session := ctrl.Session()
	if session.Script != "" {
		s.print(s.Render.Script(session.Script))
		s.print(s.Render.Notice("Type /script to hear it, then deliver your speech."))
		return nil
	}
	if n := len(session.Turns); n > 0 {
		s.print(s.Render.Trainer(session.Brief.Trainer.Name, session.Turns[n-1].Text))
	}
	return nil
}

func (s *CLISession) turn(ctx context.Context, ctrl *Controller, line string) error {
	if err := ctrl.StartCapture(ctx); err != nil {
		return err
	}
	ctrl.OnFinalResult(line)

	result, err := ctrl.StopCapture(ctx)
	if err != nil {
		return err
	}
	if result.AI != nil {
		s.print(s.Render.Trainer(ctrl.Brief().Trainer.Name, result.AI.Text))
	}
	if result.Playback != nil && result.Playback.Silent() {
		s.print(s.Render.Notice(fmt.Sprintf("(audio unavailable: %s)", result.Playback.Code)))
	}
	return nil
}

func (s *CLISession) finish(ctx context.Context, ctrl *Controller) (*EndResult, error) {
	s.print(s.Render.Notice("Generating feedback..."))
	result, err := s.Lifecycle.EndSession(ctx, ctrl)
	if err != nil {
		return nil, err
	}
	s.print(s.Render.Feedback(result.Report, result.Record))
	if result.PersistErr != nil {
		s.print(s.Render.Notice(fmt.Sprintf("Feedback was not saved: %v", result.PersistErr)))
	}
	return result, nil
}

func (s *CLISession) print(text string) {
	fmt.Fprintln(s.Out, text)
}

type plainRenderer struct{}

func (plainRenderer) Trainer(name, text string) string { return name + ": " + text }
func (plainRenderer) Script(text string) string        { return "Script:\n" + text }
func (plainRenderer) Notice(text string) string        { return text }

func (plainRenderer) Feedback(report *schema.FeedbackReport, record *schema.FeedbackRecord) string {
	var b strings.Builder
	b.WriteString(report.Summary)
	b.WriteString("\n")
	for _, dim := range sortedStats(report) {
		fmt.Fprintf(&b, "  %s: %d/5 %s\n", dim, report.Stats[dim].Score, report.Stats[dim].Comment)
	}
	if record != nil {
		fmt.Fprintf(&b, "Saved as %s", record.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortedStats returns the report's dimensions in a stable order.
func sortedStats(report *schema.FeedbackReport) []string {
	dims := make([]string, 0, len(report.Stats))
	for dim := range report.Stats {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	return dims
}
