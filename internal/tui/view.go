package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/taskboard/internal/board"
	"github.com/kingrea/taskboard/internal/kanban"
	"github.com/kingrea/taskboard/internal/timer"
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 120
	}

	header := headerStyle.Render("▦ TASKBOARD")
	var main string
	switch a.mode {
	case modeForm:
		main = a.form.View(min(width-4, 90))
	case modeImport:
		main = a.renderImport(min(width-4, 90))
	case modeHelp:
		main = renderHelp(min(width-4, 60))
	default:
		main = a.renderBoard(width)
	}

	sections := []string{header, main, a.renderPanels(width)}
	status := a.statusMsg
	if a.isError {
		status = errorStyle.Render(status)
	}
	sections = append(sections, footerStyle.Render(status), mutedStyle.Render(shortHelp()))
	return strings.Join(sections, "\n")
}

func (a *App) renderBoard(width int) string {
	b := a.service.Board()
	if len(b) == 0 {
		return mutedStyle.Render("Board is empty.")
	}
	colWidth := max(24, width/len(b)-2)
	cols := make([]string, 0, len(b))
	for i, col := range b {
		cols = append(cols, a.renderColumn(col, i == a.column, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (a *App) renderColumn(col board.Column, active bool, width int) string {
	titleText := fmt.Sprintf("%s (%d)", strings.ToUpper(col.Title), len(col.Tasks))
	title := panelTitleStyle.Render(titleText)
	if !active {
		title = bodyStyle.Bold(true).Render(titleText)
	}
	lines := []string{title, ""}
	if len(col.Tasks) == 0 {
		lines = append(lines, mutedStyle.Render("No tasks"))
	}
	for i, task := range col.Tasks {
		lines = append(lines, a.renderCard(task, active && i == a.row, width-4))
	}

	style := panelStyle.Width(width)
	if active {
		style = style.BorderForeground(accentColor)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (a *App) renderCard(task board.Task, selected bool, width int) string {
	lines := []string{task.Title}
	if task.Description != "" {
		lines = append(lines, mutedStyle.Render(task.Description))
	}
	meta := []string{priorityStyle(task.Priority).Render(string(task.Priority))}
	if task.Assignee != "" {
		meta = append(meta, "@"+task.Assignee)
	}
	if task.DueDate != nil {
		meta = append(meta, "due "+task.DueDate.Format(dueDateLayout))
	}
	if task.IsRecurring && task.RecurrencePattern != "" {
		meta = append(meta, "↻ "+string(task.RecurrencePattern))
	}
	lines = append(lines, strings.Join(meta, " · "))
	if len(task.Labels) > 0 {
		lines = append(lines, mutedStyle.Render(strings.Join(task.Labels, ", ")))
	}
	if task.IsRecurring && task.NextRecurrence != nil {
		lines = append(lines, mutedStyle.Render("Next: "+task.NextRecurrence.Format(dueDateLayout)))
	}

	elapsed := task.TimeSpent
	clock := mutedStyle.Render("⏱ " + timer.Format(elapsed))
	if a.tracker.Running() && a.trackedID == task.ID {
		clock = timerStyle.Render("⏱ " + timer.Format(a.tracker.Elapsed()) + " ●")
	}
	lines = append(lines, clock)

	style := cardStyle.Width(max(16, width))
	if selected {
		style = selectedCardStyle.Width(max(16, width - 2))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (a *App) renderPanels(width int) string {
	half := max(30, width/2-2)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		a.renderActivityPanel(half),
		a.renderAnalyticsPanel(half),
	)
}

func (a *App) renderActivityPanel(width int) string {
	lines := []string{panelTitleStyle.Render("ACTIVITY")}
	if len(a.entries) == 0 {
		lines = append(lines, mutedStyle.Render("No activity yet"))
	}
	for _, entry := range a.entries {
		lines = append(lines, fmt.Sprintf("%s %s",
			mutedStyle.Render(entry.Timestamp.Local().Format("Jan 02 15:04")),
			bodyStyle.Render(entry.Details)))
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (a *App) renderAnalyticsPanel(width int) string {
	lines := []string{panelTitleStyle.Render("ANALYTICS")}
	for _, stat := range kanban.Analytics(a.service.Board()) {
		lines = append(lines, fmt.Sprintf("%-12s %s", stat.Name,
			bodyStyle.Render(fmt.Sprintf("%d tasks · %.2fh", stat.Tasks, stat.TimeSpentHours))))
	}
	undo := mutedStyle.Render("undo ✗")
	if a.service.CanUndo() {
		undo = focusStyle.Render("undo ✓")
	}
	redo := mutedStyle.Render("redo ✗")
	if a.service.CanRedo() {
		redo = focusStyle.Render("redo ✓")
	}
	lines = append(lines, "", undo+"  "+redo)
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (a *App) renderImport(width int) string {
	lines := []string{
		panelTitleStyle.Render("IMPORT BOARD"),
		"",
		a.importIn.View(),
		"",
		mutedStyle.Render("enter: import · esc: cancel"),
	}
	return panelStyle.Width(max(40, width)).Render(strings.Join(lines, "\n"))
}
