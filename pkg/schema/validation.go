package schema

import (
	"fmt"
	"strings"
)

// ValidateFeedbackReport validates a generated report against the dimension
// set of mode.
func ValidateFeedbackReport(r *FeedbackReport, mode Mode) error {
	summary := strings.TrimSpace(r.Summary)
	if len(summary) < SummaryMin || len(summary) > SummaryMax {
		return fmt.Errorf("summary must be %d-%d characters", SummaryMin, SummaryMax)
	}

	for _, dim := range mode.Dimensions() {
		if _, ok := r.Stats[dim]; !ok {
			return fmt.Errorf("stats missing dimension %q", dim)
		}
	}
	for key, stat := range r.Stats {
		if stat.Score < ScoreMin || stat.Score > ScoreMax {
			return fmt.Errorf("stats.%s.score must be %d-%d, got %d", key, ScoreMin, ScoreMax, stat.Score)
		}
	}

	lists := map[string][]string{
		"highlights":   r.Highlights,
		"improvements": r.Improvements,
		"tips":         r.Tips,
		"next_steps":   r.NextSteps,
	}
	for name, list := range lists {
		if len(list) > FeedbackListMax {
			return fmt.Errorf("%s must have at most %d items", name, FeedbackListMax)
		}
	}

	return nil
}

// ValidateFeedbackRecord validates a record before it is persisted.
func ValidateFeedbackRecord(rec *FeedbackRecord) error {
	if rec.UserID == "" || len(rec.UserID) > UserIDMax {
		return fmt.Errorf("user_id must be 1-%d characters", UserIDMax)
	}
	if _, err := ParseMode(string(rec.Type)); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	if len(rec.Topic) > TopicMax {
		return fmt.Errorf("topic must be at most %d characters", TopicMax)
	}
	if len(rec.TrainerName) > TrainerNameMax {
		return fmt.Errorf("trainer_name must be at most %d characters", TrainerNameMax)
	}
	if strings.TrimSpace(rec.Feedback.Summary) == "" {
		return fmt.Errorf("feedback summary is required")
	}
	return nil
}

// ValidatePersona validates a catalog entry.
func ValidatePersona(p *Persona) error {
	if p.Name == "" || len(p.Name) > TrainerNameMax {
		return fmt.Errorf("name must be 1-%d characters", TrainerNameMax)
	}
	if len(p.Bio) > PersonaBioMax {
		return fmt.Errorf("bio must be at most %d characters", PersonaBioMax)
	}
	if p.Voice.VoiceID == "" {
		return fmt.Errorf("persona %s: voice_id is required", p.Name)
	}
	for _, m := range p.Modes {
		if _, err := ParseMode(string(m)); err != nil {
			return fmt.Errorf("persona %s: %w", p.Name, err)
		}
	}
	return nil
}
