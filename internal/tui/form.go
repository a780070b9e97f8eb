package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/taskboard/internal/board"
)

const dueDateLayout = "2006-01-02"

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldAssignee
	fieldDueDate
	fieldPriority
	fieldLabels
	fieldRecurring
	fieldPattern
	fieldCount
)

// textFields is the number of fields backed by a textinput.
const textFields = int(fieldDueDate) + 1

type formResult int

const (
	formPending formResult = iota
	formSubmitted
	formCancelled
)

// taskForm is the create/edit dialog.
type taskForm struct {
	editing     bool
	base        board.Task
	inputs      [textFields]textinput.Model
	priority    board.Priority
	labels      []string
	labelCursor int
	recurring   bool
	pattern     board.RecurrencePattern
	focus       formField
	err         string
}

func newTaskForm(task board.Task, editing bool) *taskForm {
	f := &taskForm{
		editing:   editing,
		base:      task.Clone(),
		priority:  task.Priority,
		labels:    append([]string{}, task.Labels...),
		recurring: task.IsRecurring,
		pattern:   task.RecurrencePattern,
	}
	if f.priority == "" {
		f.priority = board.PriorityMedium
	}
	if f.pattern == "" {
		f.pattern = board.RecurDaily
	}

	placeholders := [textFields]string{"Task title", "Description", "Assignee", "YYYY-MM-DD"}
	values := [textFields]string{task.Title, task.Description, task.Assignee, ""}
	if task.DueDate != nil {
		values[fieldDueDate] = task.DueDate.Format(dueDateLayout)
	}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 256
		ti.Width = 40
		ti.SetValue(values[i])
		f.inputs[i] = ti
	}
	f.setFocus(fieldTitle)
	return f
}

func (f *taskForm) setFocus(field formField) tea.Cmd {
	f.focus = field
	var cmd tea.Cmd
	for i := range f.inputs {
		if formField(i) == field {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *taskForm) onText() bool {
	return int(f.focus) < textFields
}

// Update routes a key to the focused field.
func (f *taskForm) Update(msg tea.KeyMsg) (formResult, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return formCancelled, nil
	case "enter":
		if strings.TrimSpace(f.inputs[fieldTitle].Value()) == "" {
			f.err = "Title is required"
			return formPending, f.setFocus(fieldTitle)
		}
		return formSubmitted, nil
	case "tab", "down":
		return formPending, f.setFocus((f.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return formPending, f.setFocus((f.focus + fieldCount - 1) % fieldCount)
	}

	if f.onText() {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		f.err = ""
		return formPending, cmd
	}

	key := msg.String()
	if n := labelShortcut(key); n >= 0 {
		f.toggleLabel(board.AvailableLabels[n])
		return formPending, nil
	}
	switch f.focus {
	case fieldPriority:
		switch key {
		case " ", "right", "l":
			f.priority = f.priority.Next()
		case "left", "h":
			f.priority = f.priority.Next().Next()
		}
	case fieldLabels:
		switch key {
		case "left", "h":
			f.labelCursor = (f.labelCursor + len(board.AvailableLabels) - 1) % len(board.AvailableLabels)
		case "right", "l":
			f.labelCursor = (f.labelCursor + 1) % len(board.AvailableLabels)
		case " ", "x":
			f.toggleLabel(board.AvailableLabels[f.labelCursor])
		}
	case fieldRecurring:
		if key == " " || key == "x" {
			f.recurring = !f.recurring
		}
	case fieldPattern:
		if !f.recurring {
			break
		}
		switch key {
		case " ", "right", "l":
			f.pattern = f.pattern.Next()
		case "left", "h":
			f.pattern = f.pattern.Next().Next()
		}
	}
	return formPending, nil
}

func labelShortcut(key string) int {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return -1
	}
	n := int(key[0] - '1')
	if n >= len(board.AvailableLabels) {
		return -1
	}
	return n
}

func (f *taskForm) toggleLabel(label string) {
	t := board.Task{Labels: f.labels}
	t.ToggleLabel(label)
	f.labels = t.Labels
}

// task builds the edited task. Fields the form does not show are carried
// over from the task it was opened with.
func (f *taskForm) task(now time.Time) (board.Task, error) {
	t := f.base.Clone()
	t.Title = strings.TrimSpace(f.inputs[fieldTitle].Value())
	t.Description = strings.TrimSpace(f.inputs[fieldDescription].Value())
	t.Assignee = strings.TrimSpace(f.inputs[fieldAssignee].Value())
	t.Priority = f.priority
	t.Labels = append([]string{}, f.labels...)
	t.IsRecurring = f.recurring
	t.RecurrencePattern = f.pattern

	t.DueDate = nil
	if due := strings.TrimSpace(f.inputs[fieldDueDate].Value()); due != "" {
		parsed, err := time.Parse(dueDateLayout, due)
		if err != nil {
			return board.Task{}, fmt.Errorf("due date must look like %s", dueDateLayout)
		}
		t.DueDate = &parsed
	}
	return board.ScheduleRecurrence(t, now), nil
}

func (f *taskForm) View(width int) string {
	title := "NEW TASK"
	if f.editing {
		title = "EDIT TASK"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(title)

	names := [fieldCount]string{"Title", "Description", "Assignee", "Due", "Priority", "Labels", "Recurring", "Repeats"}
	lines := []string{head, ""}
	for i := formField(0); i < fieldCount; i++ {
		var value string
		switch {
		case int(i) < textFields:
			value = f.inputs[i].View()
		case i == fieldPriority:
			value = priorityStyle(f.priority).Render(string(f.priority))
		case i == fieldLabels:
			value = f.renderLabels()
		case i == fieldRecurring:
			value = checkbox(f.recurring)
		case i == fieldPattern:
			value = string(f.pattern)
			if !f.recurring {
				value = mutedStyle.Render(value)
			}
		}
		label := fmt.Sprintf("%-12s", names[i])
		if i == f.focus {
			label = focusStyle.Render("› " + label)
		} else {
			label = "  " + label
		}
		lines = append(lines, label+" "+value)
	}
	if f.err != "" {
		lines = append(lines, "", errorStyle.Render(f.err))
	}
	lines = append(lines, "", mutedStyle.Render("tab: next field · space: change · 1-5: labels · enter: save · esc: cancel"))

	return panelStyle.
		Width(max(40, width)).
		Render(strings.Join(lines, "\n"))
}

func (f *taskForm) renderLabels() string {
	parts := make([]string, 0, len(board.AvailableLabels))
	current := board.Task{Labels: f.labels}
	for i, label := range board.AvailableLabels {
		text := fmt.Sprintf("%d %s %s", i+1, checkbox(current.HasLabel(label)), label)
		if f.focus == fieldLabels && i == f.labelCursor {
			text = focusStyle.Render(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "  ")
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
