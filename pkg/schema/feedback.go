package schema

import "time"

// PlaceholderSummary is the summary carried by a degraded report.
const PlaceholderSummary = "Failed to generate feedback. Please try again."

// Stat is one scored feedback dimension.
type Stat struct {
	Score   int    `json:"score" yaml:"score"`
	Comment string `json:"comment" yaml:"comment"`
}

// FeedbackReport is the feedback envelope shared by every mode. Only the
// keys of Stats differ between modes.
type FeedbackReport struct {
	Summary      string          `json:"summary" yaml:"summary"`
	Stats        map[string]Stat `json:"stats" yaml:"stats"`
	Highlights   []string        `json:"highlights" yaml:"highlights"`
	Improvements []string        `json:"improvements" yaml:"improvements"`
	Tips         []string        `json:"tips" yaml:"tips"`
	Quote        string          `json:"quote" yaml:"quote"`
	NextSteps    []string        `json:"next_steps" yaml:"next_steps"`

	// Degraded marks a placeholder produced when generation failed.
	Degraded bool `json:"-" yaml:"degraded,omitempty"`
}

// PlaceholderReport returns the report shown when feedback generation fails.
func PlaceholderReport() *FeedbackReport {
	return &FeedbackReport{
		Summary:      PlaceholderSummary,
		Stats:        map[string]Stat{},
		Highlights:   []string{},
		Improvements: []string{},
		Tips:         []string{},
		Quote:        "",
		NextSteps:    []string{},
		Degraded:     true,
	}
}

// AverageScore returns the mean of all stat scores, or 0 with no stats.
func (r *FeedbackReport) AverageScore() float64 {
	if len(r.Stats) == 0 {
		return 0
	}
	total := 0
	for _, s := range r.Stats {
		total += s.Score
	}
	return float64(total) / float64(len(r.Stats))
}

// FeedbackRecord is a persisted feedback report for one finished session.
type FeedbackRecord struct {
	ID          string         `json:"id" yaml:"id"`
	UserID      string         `json:"user_id" yaml:"user_id"`
	Type        Mode           `json:"type" yaml:"type"`
	Topic       string         `json:"topic" yaml:"topic"`
	TrainerName string         `json:"trainer_name" yaml:"trainer_name"`
	Feedback    FeedbackReport `json:"feedback" yaml:"feedback"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
}
