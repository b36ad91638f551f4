package llm

import (
	"fmt"
	"strings"

	"skillup/pkg/schema"
)

// PromptContext carries the immutable session configuration every prompt is
// built from.
type PromptContext struct {
	Mode        schema.Mode
	Topic       string
	Context     string // job description / resume text / area of interest
	TrainerName string
	TrainerRole string

	// PracticeMinutes is only used by speech feedback
	PracticeMinutes float64
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// BuildOpeningPrompt creates the prompt for the trainer's first utterance,
// or for the practice script in speech mode.
func BuildOpeningPrompt(pc PromptContext) string {
	switch pc.Mode {
	case schema.ModeInterview:
		return fmt.Sprintf(`Role: You are %s, a professional interview coach conducting a mock interview.

Interview Focus: %s
Job Description and Candidate Resume:
%s

Instructions:
1. Begin with a professional greeting
2. Ask your first question based on the job requirements and the candidate's resume (if provided)
3. Keep the question clear and relevant
4. Limit to 1-2 sentences maximum

Reply with plain spoken text only, no markdown.
Provide your opening question/statement:`, pc.TrainerName, pc.Topic, orDefault(pc.Context, "Not provided"))

	case schema.ModeSpeech:
		return fmt.Sprintf(`Write a speech practice script of two or three short paragraphs in easy English on this topic: %s

The script will be read aloud by a learner. Use short sentences and everyday words.
Reply with the script text only, no title and no markdown.`, pc.Topic)

	default:
		return fmt.Sprintf(`As %s, a debate trainer, open a debate about "%s" (area: %s).

State your position in 2-3 sentences and invite the student to respond.
Reply with plain spoken text only, no markdown.`, pc.TrainerName, pc.Topic, orDefault(pc.Context, "general"))
	}
}

// BuildNextTurnPrompt creates the prompt for the trainer's reply to the
// user's latest turn. history holds the prior turns only.
func BuildNextTurnPrompt(pc PromptContext, history []schema.Turn, latestUserTurn string) string {
	rendered := orDefault(schema.RenderHistory(history), "(no previous conversation)")

	if pc.Mode == schema.ModeInterview {
		return fmt.Sprintf(`Role: Continue as %s, the interview coach.

Interview Focus: %s
Job Description and Candidate Resume:
%s

Previous Conversation:
%s

Candidate's Latest Response:
%s

Your Task:
1. Analyze the response for relevance to the job, technical accuracy and behavioral indicators
2. Choose ONE of these actions:
   a) Ask a follow-up question to dig deeper
   b) Move to the next relevant topic
   c) Provide brief constructive feedback
3. Keep the response concise (2-3 sentences max)

Guidelines:
- For technical roles: focus on skills verification
- For behavioral questions: look for the STAR pattern
- Always maintain a professional tone

Reply with plain spoken text only, no markdown.
Provide your next interview response:`, pc.TrainerName, pc.Topic, orDefault(pc.Context, "Not provided"), rendered, latestUserTurn)
	}

	return fmt.Sprintf(`As %s, a debate trainer, continue this debate about "%s" (area: %s).

Previous context:
%s

Student's response:
%s

Provide a concise response (2-3 sentences) that either counters arguments, asks probing questions, or moves the debate forward.
Reply with plain spoken text only, no markdown.`, pc.TrainerName, pc.Topic, orDefault(pc.Context, "general"), rendered, latestUserTurn)
}

// feedbackEnvelope renders the JSON shape the model must return for mode.
func feedbackEnvelope(mode schema.Mode) string {
	var stats []string
	for _, dim := range mode.Dimensions() {
		stats = append(stats, fmt.Sprintf(`    "%s": {"score": 1-5, "comment": "analysis"}`, dim))
	}

	return fmt.Sprintf(`{
  "summary": "Brief 2-sentence overall performance summary",
  "stats": {
%s
  },
  "highlights": ["3 specific strong points"],
  "improvements": ["3 specific areas needing work with suggestions"],
  "tips": ["3 actionable tips for next practice"],
  "quote": "Motivational quote about %s",
  "next_steps": ["1 exercise to practice", "1 focus area"]
}`, strings.Join(stats, ",\n"), quoteTheme(mode))
}

func quoteTheme(mode schema.Mode) string {
	if mode == schema.ModeInterview {
		return "professional growth"
	}
	return "public speaking"
}

// BuildFeedbackPrompt creates the prompt for the end-of-session report.
func BuildFeedbackPrompt(pc PromptContext, history []schema.Turn) string {
	var header string
	switch pc.Mode {
	case schema.ModeInterview:
		header = fmt.Sprintf("Interview Focus: %q\nJob Description and Resume: %s", pc.Topic, orDefault(pc.Context, "Not provided"))
	case schema.ModeSpeech:
		header = fmt.Sprintf("Speech Topic: %q\nPractice Duration: %.1f minutes", pc.Topic, pc.PracticeMinutes)
	default:
		header = fmt.Sprintf("Debate Topic: %q\nArea: %s", pc.Topic, orDefault(pc.Context, "general"))
	}

	return fmt.Sprintf(`Generate comprehensive %s feedback in this EXACT JSON format:
%s

Every score must be an integer from 1 to 5.

%s
Trainer: %s
Transcript:
%s

Return ONLY valid JSON. Do not wrap the response in backticks or code fences.`,
		pc.Mode, feedbackEnvelope(pc.Mode), header, pc.TrainerName,
		orDefault(schema.RenderHistory(history), "(the user did not speak)"))
}
