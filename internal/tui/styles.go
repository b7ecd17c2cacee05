package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("25")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	normalStyle = lipgloss.NewStyle().
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	transcriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	statusStyles = map[string]lipgloss.Style{
		"completed":  lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		"failed":     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		"processing": lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"queued":     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		"uploaded":   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
)

func statusTag(status string, width int) string {
	style, ok := statusStyles[status]
	if !ok {
		style = dimStyle
	}
	return style.Render(pad(status, width))
}
