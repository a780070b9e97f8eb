// internal/tui/app.go
//
// This is the terminal UI for taskboard. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: the App struct (cursor, open dialog, running timer)
// 2. Update: turns key presses and ticks into kanban.Service calls
// 3. View: renders the board, the side panels and the status line
//
// The board itself lives in the service. The App only keeps transient UI
// state and re-reads the board after every change.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/taskboard/internal/activity"
	"github.com/kingrea/taskboard/internal/board"
	"github.com/kingrea/taskboard/internal/kanban"
	"github.com/kingrea/taskboard/internal/logging"
	"github.com/kingrea/taskboard/internal/timer"
)

// appMode represents which "screen" is active
type appMode int

const (
	modeBoard  appMode = iota // Column view with the cursor
	modeForm                  // Create or edit dialog
	modeImport                // Path prompt for importing a board
	modeHelp                  // Key reference
)

const (
	timerInterval     = time.Second
	activityPanelSize = 6
)

// ActivityLister reads the audit trail shown in the activity panel.
type ActivityLister interface {
	List(ctx context.Context) ([]activity.Entry, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithExportDir sets where ctrl+e writes board exports.
func WithExportDir(dir string) AppOption {
	return func(a *App) {
		if strings.TrimSpace(dir) != "" {
			a.exportDir = dir
		}
	}
}

// WithActivity attaches the activity log shown in the side panel.
func WithActivity(lister ActivityLister) AppOption {
	return func(a *App) {
		a.activity = lister
	}
}

// WithLogger routes UI diagnostics to logger.
func WithLogger(logger *logging.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the clock used to start the timer.
func WithClock(clock func() time.Time) AppOption {
	return func(a *App) {
		if clock != nil {
			a.now = clock
		}
	}
}

type timerTickMsg struct {
	taskID string
	at     time.Time
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	ctx      context.Context
	service  *kanban.Service
	activity ActivityLister
	logger   *logging.Logger
	now      func() time.Time

	mode      appMode
	column    int
	row       int
	form      *taskForm
	editingID string
	importIn  textinput.Model
	exportDir string

	tracker   timer.Tracker
	trackedID string

	entries   []activity.Entry
	statusMsg string
	isError   bool

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates a new App over svc.
func NewApp(ctx context.Context, svc *kanban.Service, opts ...AppOption) *App {
	importIn := textinput.New()
	importIn.Placeholder = "path/to/kanban-board.json"
	importIn.CharLimit = 1024
	importIn.Width = 60

	app := &App{
		ctx:       ctx,
		service:   svc,
		logger:    logging.NewNop(),
		now:       time.Now,
		mode:      modeBoard,
		importIn:  importIn,
		exportDir: ".",
		statusMsg: "Press ? for keys.",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.refreshActivity()
	return app
}

// Run starts the bubbletea program and blocks until the user quits.
func Run(ctx context.Context, app *App) error {
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case timerTickMsg:
		return a, a.handleTick(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.stopTimer()
			return a, tea.Quit
		}
		switch a.mode {
		case modeForm:
			return a, a.updateForm(msg)
		case modeImport:
			return a, a.updateImport(msg)
		case modeHelp:
			switch msg.String() {
			case "?", "esc", "q":
				a.mode = modeBoard
			}
			return a, nil
		}
		return a.updateBoard(msg)
	}
	return a, nil
}

func (a *App) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		a.stopTimer()
		return a, tea.Quit
	case "?":
		a.mode = modeHelp
	case "left", "h":
		a.selectColumn(a.column - 1)
	case "right", "l":
		a.selectColumn(a.column + 1)
	case "up", "k":
		a.selectRow(a.row - 1)
	case "down", "j":
		a.selectRow(a.row + 1)
	case "n":
		return a, a.openCreate()
	case "e", "enter":
		return a, a.openEdit()
	case "d", "delete":
		a.deleteSelected()
	case "shift+left":
		a.moveSelected(-1)
	case "shift+right":
		a.moveSelected(1)
	case "shift+up":
		a.reorderSelected(-1)
	case "shift+down":
		a.reorderSelected(1)
	case "t":
		return a, a.toggleTimer()
	case "ctrl+z":
		a.undo()
	case "ctrl+y":
		a.redo()
	case "ctrl+e":
		a.export()
	case "i":
		a.mode = modeImport
		a.importIn.SetValue("")
		return a, a.importIn.Focus()
	}
	return a, nil
}

func (a *App) selectColumn(idx int) {
	b := a.service.Board()
	if len(b) == 0 {
		return
	}
	a.column = clamp(idx, 0, len(b)-1)
	a.row = clamp(a.row, 0, len(b[a.column].Tasks)-1)
}

func (a *App) selectRow(idx int) {
	b := a.service.Board()
	if a.column >= len(b) {
		return
	}
	a.row = clamp(idx, 0, len(b[a.column].Tasks)-1)
}

func (a *App) selected() (board.Task, bool) {
	b := a.service.Board()
	if a.column >= len(b) {
		return board.Task{}, false
	}
	tasks := b[a.column].Tasks
	if a.row < 0 || a.row >= len(tasks) {
		return board.Task{}, false
	}
	return tasks[a.row], true
}

func (a *App) openCreate() tea.Cmd {
	if count := a.service.Board().TaskCount(); count >= a.service.MaxTasks() {
		a.setError(fmt.Errorf("maximum of %d tasks reached", a.service.MaxTasks()))
		return nil
	}
	a.form = newTaskForm(board.NewTask(""), false)
	a.editingID = ""
	a.mode = modeForm
	return textinput.Blink
}

func (a *App) openEdit() tea.Cmd {
	task, ok := a.selected()
	if !ok {
		return nil
	}
	a.form = newTaskForm(task, true)
	a.editingID = task.ID
	a.mode = modeForm
	return textinput.Blink
}

func (a *App) updateForm(msg tea.KeyMsg) tea.Cmd {
	result, cmd := a.form.Update(msg)
	switch result {
	case formCancelled:
		a.closeForm()
	case formSubmitted:
		task, err := a.form.task(a.now())
		if err != nil {
			a.form.err = err.Error()
			return nil
		}
		if a.editingID == "" {
			created, err := a.service.Create(a.ctx, task)
			if err != nil {
				if errors.Is(err, kanban.ErrEmptyTitle) {
					a.form.err = "Title is required"
					return nil
				}
				a.closeForm()
				a.setError(err)
				return nil
			}
			a.closeForm()
			a.column, a.row = 0, 0
			a.setStatus(fmt.Sprintf("Created %q", created.Title))
		} else {
			id := a.editingID
			err := a.service.Edit(a.ctx, id, task)
			a.closeForm()
			if err != nil {
				a.setError(err)
				return nil
			}
			a.setStatus(fmt.Sprintf("Saved %q", task.Title))
		}
		a.refreshActivity()
	}
	return cmd
}

func (a *App) closeForm() {
	a.form = nil
	a.editingID = ""
	a.mode = modeBoard
}

func (a *App) updateImport(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		a.importIn.Blur()
		a.mode = modeBoard
		return nil
	case "enter":
		path := strings.TrimSpace(a.importIn.Value())
		a.importIn.Blur()
		a.mode = modeBoard
		if path == "" {
			return nil
		}
		a.stopTimer()
		if err := a.service.ImportFile(a.ctx, path); err != nil {
			a.setError(err)
			return nil
		}
		a.column, a.row = 0, 0
		a.setStatus(fmt.Sprintf("Imported %s", filepath.Base(path)))
		return nil
	}
	var cmd tea.Cmd
	a.importIn, cmd = a.importIn.Update(msg)
	return cmd
}

func (a *App) deleteSelected() {
	task, ok := a.selected()
	if !ok {
		return
	}
	if task.ID == a.trackedID {
		a.stopTimer()
	}
	if err := a.service.Delete(a.ctx, task.ID); err != nil {
		a.setError(err)
	} else {
		a.setStatus(fmt.Sprintf("Deleted %q", task.Title))
	}
	a.selectRow(a.row)
	a.refreshActivity()
}

// moveSelected sends the task to the head of the neighbouring column.
func (a *App) moveSelected(delta int) {
	b := a.service.Board()
	if _, ok := a.selected(); !ok {
		return
	}
	target := a.column + delta
	if target < 0 || target >= len(b) {
		return
	}
	if err := a.service.MoveTask(a.ctx, b[a.column].ID, a.row, b[target].ID, 0); err != nil {
		a.setError(err)
		return
	}
	a.column, a.row = target, 0
	a.statusMsg = ""
}

func (a *App) reorderSelected(delta int) {
	b := a.service.Board()
	if _, ok := a.selected(); !ok {
		return
	}
	target := a.row + delta
	if target < 0 || target >= len(b[a.column].Tasks) {
		return
	}
	col := b[a.column].ID
	if err := a.service.MoveTask(a.ctx, col, a.row, col, target); err != nil {
		a.setError(err)
		return
	}
	a.row = target
	a.statusMsg = ""
}

func (a *App) undo() {
	ok, err := a.service.Undo(a.ctx)
	switch {
	case err != nil:
		a.setError(err)
	case ok:
		a.setStatus("Action undone")
	default:
		a.setStatus("Nothing to undo")
	}
	a.selectColumn(a.column)
}

func (a *App) redo() {
	ok, err := a.service.Redo(a.ctx)
	switch {
	case err != nil:
		a.setError(err)
	case ok:
		a.setStatus("Action redone")
	default:
		a.setStatus("Nothing to redo")
	}
	a.selectColumn(a.column)
}

func (a *App) export() {
	path, err := a.service.Export(a.ctx, a.exportDir)
	if err != nil {
		a.setError(err)
		return
	}
	a.setStatus(fmt.Sprintf("Exported to %s", path))
}

// toggleTimer starts the tracker on the selected task, or stops it when it
// is already running there. Starting on another task stops the first one.
func (a *App) toggleTimer() tea.Cmd {
	task, ok := a.selected()
	if !ok {
		return nil
	}
	if a.tracker.Running() && a.trackedID == task.ID {
		a.stopTimer()
		a.setStatus(fmt.Sprintf("Timer stopped at %s", timer.Format(a.tracker.Elapsed())))
		return nil
	}
	a.stopTimer()
	a.trackedID = task.ID
	a.tracker.Start(a.now())
	a.setStatus(fmt.Sprintf("Tracking %q", task.Title))
	return tickTimer(task.ID)
}

func (a *App) stopTimer() {
	if !a.tracker.Running() {
		return
	}
	a.tracker.Stop()
}

func (a *App) handleTick(msg timerTickMsg) tea.Cmd {
	if !a.tracker.Running() || msg.taskID != a.trackedID {
		return nil
	}
	elapsed, _ := a.tracker.Tick(msg.at)
	if err := a.service.TrackTime(a.ctx, a.trackedID, elapsed); err != nil {
		a.setError(err)
	}
	return tickTimer(a.trackedID)
}

func tickTimer(taskID string) tea.Cmd {
	return tea.Tick(timerInterval, func(at time.Time) tea.Msg {
		return timerTickMsg{taskID: taskID, at: at}
	})
}

func (a *App) refreshActivity() {
	if a.activity == nil {
		return
	}
	entries, err := a.activity.List(a.ctx)
	if err != nil {
		a.logger.Warnw("Failed to read activity log", "error", err)
		return
	}
	if len(entries) > activityPanelSize {
		entries = entries[:activityPanelSize]
	}
	a.entries = entries
}

func (a *App) setStatus(msg string) {
	a.statusMsg = msg
	a.isError = false
}

func (a *App) setError(err error) {
	switch {
	case errors.Is(err, kanban.ErrTaskLimit):
		a.statusMsg = fmt.Sprintf("Maximum of %d tasks reached", a.service.MaxTasks())
	case errors.Is(err, kanban.ErrInvalidImport):
		a.statusMsg = "Invalid file format"
	default:
		a.statusMsg = err.Error()
	}
	a.isError = true
	a.logger.Warnw("UI action failed", "error", err)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
