package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/taskboard/internal/board"
)

var (
	borderColor = lipgloss.Color("#444444")
	accentColor = lipgloss.Color("#5B8DEF")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			MarginBottom(1)

	selectedCardStyle = lipgloss.NewStyle().
				Bold(true).
				Border(lipgloss.NormalBorder()).
				BorderForeground(accentColor).
				Padding(0, 1)

	focusStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	timerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#43BF6D"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

var priorityColors = map[board.Priority]lipgloss.Color{
	board.PriorityLow:    lipgloss.Color("#43BF6D"),
	board.PriorityMedium: lipgloss.Color("#F2C94C"),
	board.PriorityHigh:   lipgloss.Color("#FF6B6B"),
}

func priorityStyle(p board.Priority) lipgloss.Style {
	color, ok := priorityColors[p]
	if !ok {
		return mutedStyle
	}
	return lipgloss.NewStyle().Foreground(color)
}
