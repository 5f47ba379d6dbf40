package tui

import (
	"github.com/charmbracelet/lipgloss"

	"sparky/internal/project"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	statusStyles = map[project.Status]lipgloss.Style{
		project.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		project.StatusBuilding:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		project.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
)

func statusBadge(s project.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		style = dimStyle
	}
	return style.Render(string(s))
}
