package llm

import (
	"strings"
	"testing"

	"skillup/pkg/schema"
)

func TestBuildOpeningPrompt(t *testing.T) {
	t.Run("interview", func(t *testing.T) {
		prompt := BuildOpeningPrompt(PromptContext{
			Mode:        schema.ModeInterview,
			Topic:       "Backend Engineer",
			Context:     "Go, Postgres, 5 years",
			TrainerName: "Poorvi Ai",
		})

		for _, want := range []string{"Poorvi Ai", "Backend Engineer", "Go, Postgres, 5 years", "opening question"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt should contain %q", want)
			}
		}
	})

	t.Run("interview without resume", func(t *testing.T) {
		prompt := BuildOpeningPrompt(PromptContext{Mode: schema.ModeInterview, TrainerName: "X"})
		if !strings.Contains(prompt, "Not provided") {
			t.Error("missing context should render as 'Not provided'")
		}
	})

	t.Run("debate", func(t *testing.T) {
		prompt := BuildOpeningPrompt(PromptContext{
			Mode:        schema.ModeDebate,
			Topic:       "Remote work",
			Context:     "economics",
			TrainerName: "Varun Ai",
		})
		if !strings.Contains(prompt, `"Remote work"`) || !strings.Contains(prompt, "area: economics") {
			t.Errorf("unexpected debate prompt: %s", prompt)
		}
	})

	t.Run("speech asks for a script", func(t *testing.T) {
		prompt := BuildOpeningPrompt(PromptContext{Mode: schema.ModeSpeech, Topic: "Climate"})
		if !strings.Contains(prompt, "script") || !strings.Contains(prompt, "Climate") {
			t.Errorf("unexpected speech prompt: %s", prompt)
		}
	})
}

func TestBuildNextTurnPrompt(t *testing.T) {
	history := []schema.Turn{
		{Speaker: schema.SpeakerAI, Text: "Why remote?"},
		{Speaker: schema.SpeakerUser, Text: "Less commuting."},
	}

	t.Run("debate renders history in order", func(t *testing.T) {
		prompt := BuildNextTurnPrompt(PromptContext{Mode: schema.ModeDebate, Topic: "Remote work"}, history, "It saves money")

		first := strings.Index(prompt, "ai: Why remote?")
		second := strings.Index(prompt, "user: Less commuting.")
		if first < 0 || second < 0 || first > second {
			t.Errorf("history not rendered chronologically: %s", prompt)
		}
		if !strings.Contains(prompt, "It saves money") {
			t.Error("prompt should contain the latest user turn")
		}
	})

	t.Run("empty history", func(t *testing.T) {
		prompt := BuildNextTurnPrompt(PromptContext{Mode: schema.ModeDebate}, nil, "Opening argument")
		if !strings.Contains(prompt, "(no previous conversation)") {
			t.Error("empty history should be marked")
		}
	})

	t.Run("interview uses STAR guidance", func(t *testing.T) {
		prompt := BuildNextTurnPrompt(PromptContext{Mode: schema.ModeInterview}, history, "answer")
		if !strings.Contains(prompt, "STAR") {
			t.Error("interview prompt should mention STAR")
		}
	})
}

func TestBuildFeedbackPrompt(t *testing.T) {
	tests := []struct {
		mode  schema.Mode
		extra string
	}{
		{schema.ModeDebate, "Debate Topic"},
		{schema.ModeInterview, "Interview Focus"},
		{schema.ModeSpeech, "Practice Duration: 2.5 minutes"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			prompt := BuildFeedbackPrompt(PromptContext{
				Mode:            tt.mode,
				Topic:           "Topic",
				PracticeMinutes: 2.5,
			}, []schema.Turn{{Speaker: schema.SpeakerUser, Text: "hello"}})

			for _, dim := range tt.mode.Dimensions() {
				if !strings.Contains(prompt, `"`+dim+`"`) {
					t.Errorf("prompt should contain dimension %q", dim)
				}
			}
			for _, key := range []string{"summary", "highlights", "improvements", "tips", "quote", "next_steps"} {
				if !strings.Contains(prompt, `"`+key+`"`) {
					t.Errorf("prompt should contain envelope key %q", key)
				}
			}
			if !strings.Contains(prompt, tt.extra) {
				t.Errorf("prompt should contain %q", tt.extra)
			}
			if !strings.Contains(prompt, "user: hello") {
				t.Error("prompt should contain the transcript")
			}
		})
	}
}
