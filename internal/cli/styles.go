package cli

import "github.com/charmbracelet/lipgloss"

var (
	solverColor   = lipgloss.Color("#60A5FA") // blue
	reviewerColor = lipgloss.Color("#A78BFA") // purple
	agreedColor   = lipgloss.Color("#10B981") // green
	failedColor   = lipgloss.Color("#F87171") // red
	mutedColor    = lipgloss.Color("#9CA3AF") // gray

	solverBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(solverColor)

	reviewerBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(reviewerColor)

	statusLine = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	agreedPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(agreedColor).
			Padding(0, 2)

	failedPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(failedColor).
			Padding(0, 2)
)
