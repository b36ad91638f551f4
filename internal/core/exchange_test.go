package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillup/internal/llm"
	"skillup/internal/llm/tasks"
	"skillup/pkg/schema"
)

func TestLLMTurnExchange_Opening(t *testing.T) {
	gen := llm.NewMockGenerator("  Hello, I am Varun. Tell me about yourself.  ")
	exchange := NewLLMTurnExchange(gen)

	text, err := exchange.RequestOpeningTurn(context.Background(), testBrief(schema.ModeInterview))

	require.NoError(t, err)
	assert.Equal(t, "Hello, I am Varun. Tell me about yourself.", text)
	assert.Contains(t, gen.LastPrompt(), "Varun Ai")
}

func TestLLMTurnExchange_NextTurnRendersHistory(t *testing.T) {
	gen := llm.NewMockGenerator("Why do you think so?")
	exchange := NewLLMTurnExchange(gen)
	history := []schema.Turn{
		{Speaker: schema.SpeakerAI, Text: "Is remote work here to stay?"},
		{Speaker: schema.SpeakerUser, Text: "Mostly yes."},
		{Speaker: schema.SpeakerAI, Text: "What about collaboration?"},
	}

	text, err := exchange.RequestNextTurn(context.Background(), testBrief(schema.ModeDebate), history, "Tools solved most of it.")

	require.NoError(t, err)
	assert.Equal(t, "Why do you think so?", text)
	prompt := gen.LastPrompt()
	assert.Contains(t, prompt, "ai: Is remote work here to stay?\nuser: Mostly yes.\nai: What about collaboration?")
	assert.Contains(t, prompt, "Tools solved most of it.")
}

func TestLLMTurnExchange_FailuresAreTyped(t *testing.T) {
	brief := testBrief(schema.ModeDebate)

	t.Run("transport failure", func(t *testing.T) {
		gen := &llm.MockGenerator{Error: llm.NewNetworkError(errors.New("connection refused"))}
		_, err := NewLLMTurnExchange(gen).RequestNextTurn(context.Background(), brief, nil, "hi")

		assert.ErrorIs(t, err, ErrTurnGenerationFailed)
		var tErr *TurnGenerationError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, "next_turn", tErr.Op)
	})

	t.Run("blank reply", func(t *testing.T) {
		_, err := NewLLMTurnExchange(llm.NewMockGenerator("  ")).RequestOpeningTurn(context.Background(), brief)

		var tErr *TurnGenerationError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, "opening", tErr.Op)
	})

	t.Run("unparseable feedback", func(t *testing.T) {
		gen := llm.NewMockGenerator("Great job overall!")
		_, err := NewLLMTurnExchange(gen).RequestFeedback(context.Background(), brief, nil)

		assert.ErrorIs(t, err, ErrFeedbackGenerationFailed)
		assert.Equal(t, llm.DefaultMaxRetries, gen.Calls)
	})
}

func TestLLMTurnExchange_Feedback(t *testing.T) {
	gen := llm.NewMockGenerator(tasks.CannedFeedbackJSON(schema.ModeSpeech, 4))
	brief := testBrief(schema.ModeSpeech)
	history := []schema.Turn{{Speaker: schema.SpeakerUser, Text: "Good morning everyone."}}

	report, err := NewLLMTurnExchange(gen).RequestFeedback(context.Background(), brief, history)

	require.NoError(t, err)
	assert.Len(t, report.Stats, 4)
	assert.Equal(t, 4, report.Stats["pacing"].Score)
	assert.Contains(t, gen.LastPrompt(), "user: Good morning everyone.")
}

func TestMockTurnExchange_RepeatsLastReply(t *testing.T) {
	m := NewMockTurnExchange("one", "two")
	brief := testBrief(schema.ModeDebate)

	var got []string
	for range 3 {
		text, err := m.RequestNextTurn(context.Background(), brief, nil, "x")
		require.NoError(t, err)
		got = append(got, text)
	}

	assert.Equal(t, []string{"one", "two", "two"}, got)
	_, calls, _ := m.Counts()
	assert.Equal(t, 3, calls)
}
