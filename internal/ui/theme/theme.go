// Package theme holds the lipgloss styles used by the CLI's question
// previews and reports.
package theme

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptiq/internal/question"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(22)

	Value = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2).
		MarginBottom(1)

	Section = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true).
		MarginTop(1)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Accent)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

var tierColors = map[question.Tier]lipgloss.Style{
	question.TierBeginner:     lipgloss.NewStyle().Foreground(Success),
	question.TierIntermediate: lipgloss.NewStyle().Foreground(Secondary),
	question.TierAdvanced:     lipgloss.NewStyle().Foreground(Accent),
	question.TierExpert:       lipgloss.NewStyle().Foreground(Error),
}

// TierBadge renders t in its tier color.
func TierBadge(t question.Tier) string {
	s, ok := tierColors[t]
	if !ok {
		s = Subtitle
	}
	return s.Render(t.String())
}

// Bar renders a progress bar for a percentage in [0, 100].
func Bar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(percent/100*float64(width) + 0.5)
	filled = max(0, min(filled, width))
	return ProgressFilled.Render(strings.Repeat("█", filled)) +
		ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

// Row renders a label and value pair on one line.
func Row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, Label.Render(label), Value.Render(value))
}
