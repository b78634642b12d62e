// Package theme holds the terminal styles used by the tutor's command-line
// output.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/Pavansyamala/agenticAItutor/internal/mastery"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Purple
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

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Good = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Bad = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Warn = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// MasteryState styles a mastery label.
func MasteryState(s mastery.State) string {
	switch s {
	case mastery.StateMastered:
		return Good.Render(string(s))
	case mastery.StateProficient:
		return lipgloss.NewStyle().Foreground(Secondary).Render(string(s))
	case mastery.StateLearning:
		return Warn.Render(string(s))
	default:
		return Dim.Render(string(s))
	}
}

// GateState styles a gate decision label.
func GateState(s monitor.GateState) string {
	switch s {
	case monitor.StateDecidedAdvance:
		return Good.Render("advance")
	case monitor.StateDecidedEscalate:
		return Bad.Render("escalate")
	case monitor.StateDecidedRemediate:
		return Warn.Render("remediate")
	default:
		return Dim.Render(string(s))
	}
}

// Score renders a score in [0, 1] as a percentage, green at or above
// threshold and rose below it.
func Score(v, threshold float64) string {
	s := fmt.Sprintf("%3.0f%%", v*100)
	if v >= threshold {
		return Good.Render(s)
	}
	return Bad.Render(s)
}

// Bar renders a horizontal bar for v in [0, 1].
func Bar(v float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := min(max(int(float64(width)*v), 0), width)
	return lipgloss.NewStyle().Foreground(Secondary).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("░", width-filled))
}
