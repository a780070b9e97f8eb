// Package kanban implements the board mutations. Every accepted mutation
// builds the complete next board, commits it to the undo history and writes
// the new present to the board repository.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/taskboard/internal/activity"
	"github.com/kingrea/taskboard/internal/board"
	"github.com/kingrea/taskboard/internal/history"
	"github.com/kingrea/taskboard/internal/logging"
	"github.com/kingrea/taskboard/internal/store"
)

const (
	DefaultMaxTasks   = 5
	DefaultMaxHistory = history.DefaultLimit
)

var (
	// ErrTaskLimit is returned when creating a task would exceed the cap.
	ErrTaskLimit = errors.New("kanban: task limit reached")
	// ErrEmptyTitle is returned when a new task has a blank title.
	ErrEmptyTitle = board.ErrEmptyTitle
	// ErrInvalidImport is returned when an imported file cannot be used.
	ErrInvalidImport = errors.New("kanban: invalid import")
	// ErrNegativeTime is returned when a tracker reports a negative duration.
	ErrNegativeTime = errors.New("kanban: time spent cannot be negative")
)

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, action activity.Action, taskID, details string) (activity.Entry, error)
}

// Service owns the board history. It is not safe for concurrent use; a
// single event loop is expected to drive it.
type Service struct {
	repo         store.BoardState
	activity     ActivityRecorder
	history      *history.History[board.Board]
	maxTasks     int
	maxHistory   int
	strictImport bool
	newID        board.IDGenerator
	now          func() time.Time
	logger       *logging.Logger
}

// Option customizes a Service during construction.
type Option func(*Service)

// WithMaxTasks overrides the total task cap.
func WithMaxTasks(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTasks = n
		}
	}
}

// WithMaxHistory overrides how many undo steps are kept.
func WithMaxHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithStrictImport toggles structural validation of imported boards.
func WithStrictImport(strict bool) Option {
	return func(s *Service) {
		s.strictImport = strict
	}
}

// WithIDGenerator overrides how task identifiers are produced.
func WithIDGenerator(gen board.IDGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the clock used for export file names.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a service and loads the stored board once. A missing or
// unreadable board, or one without the three fixed columns, falls back to
// the empty default board.
func New(ctx context.Context, repo store.BoardState, recorder ActivityRecorder, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		activity:     recorder,
		maxTasks:     DefaultMaxTasks,
		maxHistory:   DefaultMaxHistory,
		strictImport: true,
		newID:        board.NewID,
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = history.New(s.load(ctx), s.maxHistory)
	return s
}

func (s *Service) load(ctx context.Context) board.Board {
	stored, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return board.Default()
	case err != nil:
		s.logger.Warnw("Stored board unreadable, starting empty", "error", err)
		return board.Default()
	}
	if err := stored.ValidateColumns(); err != nil {
		s.logger.Warnw("Stored board has the wrong columns, starting empty", "error", err)
		return board.Default()
	}
	if err := stored.Validate(); err != nil {
		s.logger.Warnw("Stored board failed validation", "error", err)
	}
	return stored
}

// Board returns a copy of the present board.
func (s *Service) Board() board.Board {
	return s.history.Present().Clone()
}

// CanUndo reports whether there is a mutation to undo.
func (s *Service) CanUndo() bool {
	return s.history.CanUndo()
}

// CanRedo reports whether there is an undone mutation to reapply.
func (s *Service) CanRedo() bool {
	return s.history.CanRedo()
}

// MaxTasks returns the configured task cap.
func (s *Service) MaxTasks() int {
	return s.maxTasks
}

// Create prepends task to the To Do column. It assigns an identifier when
// the task has none and defaults the priority to medium.
func (s *Service) Create(ctx context.Context, task board.Task) (board.Task, error) {
	present := s.history.Present()
	if present.TaskCount() >= s.maxTasks {
		return board.Task{}, fmt.Errorf("%w: maximum of %d tasks", ErrTaskLimit, s.maxTasks)
	}
	task = task.Clone()
	task.Title = strings.TrimSpace(task.Title)
	if task.ID == "" {
		task.ID = s.newID()
	}
	if task.Priority == "" {
		task.Priority = board.PriorityMedium
	}
	if task.Labels == nil {
		task.Labels = []string{}
	}
	if err := task.ValidateNew(); err != nil {
		return board.Task{}, err
	}
	if _, _, exists := present.Find(task.ID); exists {
		return board.Task{}, fmt.Errorf("kanban: task %q already exists", task.ID)
	}

	next := present.Clone()
	idx := next.ColumnIndex(board.ColumnTodo)
	if idx < 0 {
		return board.Task{}, fmt.Errorf("kanban: board has no %s column", board.ColumnTodo)
	}
	next[idx].Tasks = append([]board.Task{task}, next[idx].Tasks...)

	if err := s.commit(ctx, next); err != nil {
		return task, err
	}
	s.record(ctx, activity.ActionCreate, task.ID, fmt.Sprintf("Created task %q", task.Title))
	return task, nil
}

// Delete removes the task from whichever column holds it. An unknown id
// leaves the board untouched but is still logged.
func (s *Service) Delete(ctx context.Context, taskID string) error {
	present := s.history.Present()
	task, _, found := present.Find(taskID)
	if found {
		next := present.Clone()
		for i := range next {
			kept := make([]board.Task, 0, len(next[i].Tasks))
			for _, candidate := range next[i].Tasks {
				if candidate.ID != taskID {
					kept = append(kept, candidate)
				}
			}
			next[i].Tasks = kept
		}
		if err := s.commit(ctx, next); err != nil {
			return err
		}
	}
	details := fmt.Sprintf("Deleted task %s", taskID)
	if found {
		details = fmt.Sprintf("Deleted task %q", task.Title)
	}
	s.record(ctx, activity.ActionDelete, taskID, details)
	return nil
}

// Edit replaces the task in place, keeping its column and position. An
// unknown id leaves the board untouched but is still logged.
func (s *Service) Edit(ctx context.Context, taskID string, updated board.Task) error {
	updated = updated.Clone()
	updated.ID = taskID
	if err := updated.Validate(); err != nil {
		return err
	}
	found, err := s.replace(ctx, updated)
	if err != nil {
		return err
	}
	details := fmt.Sprintf("Edited task %s", taskID)
	if found {
		details = fmt.Sprintf("Edited task %q", updated.Title)
	}
	s.record(ctx, activity.ActionEdit, taskID, details)
	return nil
}

// TrackTime overwrites the task's time spent with seconds. It goes through
// the edit path without writing an activity entry.
func (s *Service) TrackTime(ctx context.Context, taskID string, seconds int) error {
	if seconds < 0 {
		return ErrNegativeTime
	}
	task, _, found := s.history.Present().Find(taskID)
	if !found {
		return nil
	}
	task = task.Clone()
	task.TimeSpent = seconds
	_, err := s.replace(ctx, task)
	return err
}

func (s *Service) replace(ctx context.Context, updated board.Task) (bool, error) {
	present := s.history.Present()
	_, loc, found := present.Find(updated.ID)
	if !found {
		return false, nil
	}
	next := present.Clone()
	col := next.ColumnIndex(loc.ColumnID)
	next[col].Tasks[loc.Index] = updated
	return true, s.commit(ctx, next)
}

// Move applies a finished drag: the task at the source slot is removed and
// inserted at the destination slot. A drag without destination, an unknown
// column or an out-of-range source index is a no-op. The destination index
// is clamped to the column bounds.
func (s *Service) Move(ctx context.Context, drop board.DropResult) error {
	if drop.Destination == nil {
		return nil
	}
	present := s.history.Present()
	srcCol := present.ColumnIndex(drop.Source.ColumnID)
	dstCol := present.ColumnIndex(drop.Destination.ColumnID)
	if srcCol < 0 || dstCol < 0 {
		return nil
	}
	srcIdx := drop.Source.Index
	if srcIdx < 0 || srcIdx >= len(present[srcCol].Tasks) {
		return nil
	}

	next := present.Clone()
	src := next[srcCol].Tasks
	moved := src[srcIdx]
	remaining := make([]board.Task, 0, len(src)-1)
	remaining = append(remaining, src[:srcIdx]...)
	next[srcCol].Tasks = append(remaining, src[srcIdx+1:]...)

	dst := next[dstCol].Tasks
	dstIdx := max(0, min(drop.Destination.Index, len(dst)))
	inserted := make([]board.Task, 0, len(dst)+1)
	inserted = append(inserted, dst[:dstIdx]...)
	inserted = append(inserted, moved)
	inserted = append(inserted, dst[dstIdx:]...)
	next[dstCol].Tasks = inserted

	return s.commit(ctx, next)
}

// MoveTask is Move with explicit coordinates.
func (s *Service) MoveTask(ctx context.Context, from board.ColumnID, fromIndex int, to board.ColumnID, toIndex int) error {
	return s.Move(ctx, board.DropResult{
		Source:      board.Location{ColumnID: from, Index: fromIndex},
		Destination: &board.Location{ColumnID: to, Index: toIndex},
	})
}

// Undo restores the previous board. It reports false when nothing changed.
func (s *Service) Undo(ctx context.Context) (bool, error) {
	if !s.history.Undo() {
		return false, nil
	}
	return true, s.persist(ctx)
}

// Redo reapplies the last undone board. It reports false when nothing changed.
func (s *Service) Redo(ctx context.Context) (bool, error) {
	if !s.history.Redo() {
		return false, nil
	}
	return true, s.persist(ctx)
}

func (s *Service) commit(ctx context.Context, next board.Board) error {
	s.history.Commit(next)
	return s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.history.Present()); err != nil {
		s.logger.Errorw("Failed to persist board", "error", err)
		return fmt.Errorf("kanban: persist board: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, taskID, details string) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, action, taskID, details); err != nil {
		s.logger.Warnw("Failed to record activity", "action", action, "task_id", taskID, "error", err)
	}
}
