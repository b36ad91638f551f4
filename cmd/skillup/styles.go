package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"skillup/internal/core"
	"skillup/pkg/schema"
)

var (
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorRed    = lipgloss.Color("#FF0000")
	colorGray   = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	trainerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	scriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	idStyle = lipgloss.NewStyle().
		Foreground(colorGray)
)

// scoreStyle colors a 1-5 score.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 4:
		return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	case score == 3:
		return lipgloss.NewStyle().Foreground(colorYellow)
	default:
		return lipgloss.NewStyle().Foreground(colorRed)
	}
}

var _ core.CLIRenderer = termRenderer{}

// termRenderer renders practice sessions with lipgloss.
type termRenderer struct{}

func (termRenderer) Trainer(name, text string) string {
	return trainerStyle.Render(name+":") + " " + text
}

func (termRenderer) Script(text string) string {
	return titleStyle.Render("Practice script") + "\n" + scriptStyle.Render(text)
}

func (termRenderer) Notice(text string) string {
	return noticeStyle.Render(text)
}

func (termRenderer) Feedback(report *schema.FeedbackReport, record *schema.FeedbackRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Feedback"))
	b.WriteString("\n")
	b.WriteString(report.Summary)
	b.WriteString("\n")

	if len(report.Stats) > 0 {
		b.WriteString("\n")
		dims := make([]string, 0, len(report.Stats))
		for dim := range report.Stats {
			dims = append(dims, dim)
		}
		sort.Strings(dims)
		for _, dim := range dims {
			stat := report.Stats[dim]
			fmt.Fprintf(&b, "  %-18s %s  %s\n",
				labelStyle.Render(dim),
				scoreStyle(stat.Score).Render(fmt.Sprintf("%d/5", stat.Score)),
				stat.Comment)
		}
	}

	writeList(&b, "Highlights", report.Highlights)
	writeList(&b, "Improvements", report.Improvements)
	writeList(&b, "Tips", report.Tips)
	writeList(&b, "Next steps", report.NextSteps)
	if report.Quote != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Italic(true).Render(report.Quote))
		b.WriteString("\n")
	}
	if record != nil {
		b.WriteString("\n")
		b.WriteString(idStyle.Render("Saved as " + record.ID))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(title))
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

// renderPersona formats one catalog entry.
func renderPersona(p schema.Persona) string {
	modes := "all modes"
	if len(p.Modes) > 0 {
		names := make([]string, len(p.Modes))
		for i, m := range p.Modes {
			names[i] = string(m)
		}
		modes = strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s %s\n  %s\n  %s %s\n  %s %s",
		trainerStyle.Render(p.Name),
		noticeStyle.Render("("+p.Role+")"),
		p.Bio,
		labelStyle.Render("modes:"), modes,
		labelStyle.Render("voice:"), p.Voice.VoiceID)
}

// renderRecordLine formats a feedback record for list output.
func renderRecordLine(rec schema.FeedbackRecord) string {
	return fmt.Sprintf("%s  %s  %-9s %s  %s",
		idStyle.Render(rec.ID),
		rec.CreatedAt.Local().Format("2006-01-02 15:04"),
		rec.Type,
		scoreStyle(int(rec.Feedback.AverageScore()+0.5)).Render(fmt.Sprintf("%.1f", rec.Feedback.AverageScore())),
		rec.Topic)
}
