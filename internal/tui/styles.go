package tui

import "github.com/charmbracelet/lipgloss"

// Row statuses used by the build table.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusBuilt     = "built"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusInstalled = "installed"
	StatusCached    = "cached"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

	statusStyles = map[string]lipgloss.Style{
		StatusBuilt:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusInstalled: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusCached:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		StatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		StatusPartial: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		StatusFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		StatusPending: lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// terminal reports whether a row with this status has finished.
func terminal(status string) bool {
	switch status {
	case StatusBuilt, StatusPartial, StatusFailed, StatusInstalled, StatusCached:
		return true
	}
	return false
}
