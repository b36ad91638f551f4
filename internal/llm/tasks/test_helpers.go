package tasks

import (
	"encoding/json"

	"skillup/pkg/schema"
)

// CannedFeedbackJSON returns a valid feedback envelope for mode, scoring
// every dimension with score. Used by tests and the offline generator.
func CannedFeedbackJSON(mode schema.Mode, score int) string {
	stats := map[string]schema.Stat{}
	for _, dim := range mode.Dimensions() {
		stats[dim] = schema.Stat{Score: score, Comment: "Consistent throughout the session."}
	}

	report := schema.FeedbackReport{
		Summary:      "You stayed engaged and made your points clearly. Work on structure to sound more confident.",
		Stats:        stats,
		Highlights:   []string{"Clear opening statement"},
		Improvements: []string{"Support claims with an example"},
		Tips:         []string{"Pause briefly before answering"},
		Quote:        "The best way to get started is to quit talking and begin doing.",
		NextSteps:    []string{"Repeat this topic with a time limit"},
	}

	data, _ := json.Marshal(report)
	return string(data)
}
