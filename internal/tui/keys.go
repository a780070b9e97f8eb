package tui

import (
	"fmt"
	"strings"
)

type keyHelp struct {
	keys string
	desc string
}

var boardKeys = []keyHelp{
	{"←/→ h/l", "select column"},
	{"↑/↓ k/j", "select task"},
	{"n", "new task"},
	{"e / enter", "edit task"},
	{"d", "delete task"},
	{"shift+←/→", "move task to column"},
	{"shift+↑/↓", "reorder task"},
	{"t", "start/stop timer"},
	{"ctrl+z", "undo"},
	{"ctrl+y", "redo"},
	{"ctrl+e", "export board"},
	{"i", "import board"},
	{"?", "toggle help"},
	{"q / ctrl+c", "quit"},
}

func renderHelp(width int) string {
	lines := []string{panelTitleStyle.Render("KEYS"), ""}
	for _, k := range boardKeys {
		lines = append(lines, fmt.Sprintf("%s %s", focusStyle.Render(fmt.Sprintf("%-12s", k.keys)), bodyStyle.Render(k.desc)))
	}
	lines = append(lines, "", mutedStyle.Render("press ? or esc to close"))
	return panelStyle.Width(max(40, width)).Render(strings.Join(lines, "\n"))
}

func shortHelp() string {
	return "n new · e edit · d delete · shift+arrows move · t timer · ctrl+z undo · ? help"
}
