package kanban

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/taskboard/internal/activity"
	"github.com/kingrea/taskboard/internal/board"
	"github.com/kingrea/taskboard/internal/store"
)

const (
	boardKey    = "kanban_board_tasks"
	activityKey = "kanban_tasks_activity_log"
)

type fixture struct {
	kv       *store.MemoryKV
	repo     *store.BoardRepository
	activity *activity.Log
	svc      *Service
}

func sequentialIDs(prefix string) board.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	kv := store.NewMemoryKV()
	f := &fixture{
		kv:       kv,
		repo:     store.NewBoardRepository(kv, boardKey),
		activity: activity.New(kv, activityKey),
	}
	opts = append([]Option{WithIDGenerator(sequentialIDs("t"))}, opts...)
	f.svc = New(context.Background(), f.repo, f.activity, opts...)
	return f
}

func (f *fixture) stored(t *testing.T) board.Board {
	t.Helper()
	b, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	return b
}

func (f *fixture) entries(t *testing.T) []activity.Entry {
	t.Helper()
	entries, err := f.activity.List(context.Background())
	require.NoError(t, err)
	return entries
}

func titles(col board.Column) []string {
	out := make([]string, 0, len(col.Tasks))
	for _, task := range col.Tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestNewStartsWithDefaultBoard(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, board.Default(), f.svc.Board())
	assert.False(t, f.svc.CanUndo())
	assert.False(t, f.svc.CanRedo())
}

func TestNewLoadsStoredBoard(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	repo := store.NewBoardRepository(kv, boardKey)
	stored := board.Default()
	stored[1].Tasks = []board.Task{{ID: "x", Title: "Existing", Priority: board.PriorityLow, Labels: []string{}}}
	require.NoError(t, repo.Save(ctx, stored))

	svc := New(ctx, repo, nil)
	assert.Equal(t, stored, svc.Board())
}

func TestNewFallsBackOnCorruptBoard(t *testing.T) {
	tests := map[string]string{
		"not json":        "{{{",
		"null":            "null",
		"no columns":      "[]",
		"missing columns": `[{"id":"todo","title":"To Do","tasks":[]}]`,
		"wrong ids":       `[{"id":"todo","title":"To Do","tasks":[]},{"id":"doing","title":"Doing","tasks":[]},{"id":"done","title":"Done","tasks":[]}]`,
	}
	for name, stored := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := store.NewMemoryKV()
			require.NoError(t, kv.Set(ctx, boardKey, []byte(stored)))
			svc := New(ctx, store.NewBoardRepository(kv, boardKey), nil)
			assert.Equal(t, board.Default(), svc.Board())

			_, err := svc.Create(ctx, board.NewTask("still works"))
			require.NoError(t, err)
			assert.Len(t, svc.Board()[0].Tasks, 1)
		})
	}
}

func TestCreateEditMoveDeleteScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, board.Task{Title: "Fix bug", Priority: board.PriorityHigh, Labels: []string{"Bug"}})
	require.NoError(t, err)
	assert.Equal(t, "t1", created.ID)

	b := f.svc.Board()
	require.Len(t, b[0].Tasks, 1)
	assert.Equal(t, "Fix bug", b[0].Tasks[0].Title)
	assert.Equal(t, b, f.stored(t))

	require.NoError(t, f.svc.MoveTask(ctx, board.ColumnTodo, 0, board.ColumnInProgress, 0))
	b = f.svc.Board()
	assert.Empty(t, b[0].Tasks)
	require.Len(t, b[1].Tasks, 1)
	assert.Equal(t, "t1", b[1].Tasks[0].ID)

	edited := b[1].Tasks[0]
	edited.Description = "Null pointer in parser"
	require.NoError(t, f.svc.Edit(ctx, "t1", edited))
	task, loc, ok := f.svc.Board().Find("t1")
	require.True(t, ok)
	assert.Equal(t, board.Location{ColumnID: board.ColumnInProgress, Index: 0}, loc)
	assert.Equal(t, "Null pointer in parser", task.Description)

	require.NoError(t, f.svc.Delete(ctx, "t1"))
	assert.Equal(t, 0, f.svc.Board().TaskCount())
	assert.Equal(t, 0, f.stored(t).TaskCount())

	entries := f.entries(t)
	require.Len(t, entries, 3)
	assert.Equal(t, activity.ActionDelete, entries[0].Action)
	assert.Equal(t, activity.ActionEdit, entries[1].Action)
	assert.Equal(t, activity.ActionCreate, entries[2].Action)
	assert.Equal(t, `Created task "Fix bug"`, entries[2].Details)
}

func TestCreatePrependsToTodo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, title := range []string{"first", "second", "third"} {
		_, err := f.svc.Create(ctx, board.NewTask(title))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"third", "second", "first"}, titles(f.svc.Board()[0]))
}

func TestCreateDefaultsAndTrims(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.Create(context.Background(), board.Task{Title: "  padded  "})
	require.NoError(t, err)
	assert.Equal(t, "padded", task.Title)
	assert.Equal(t, board.PriorityMedium, task.Priority)
	assert.NotNil(t, task.Labels)
}

func TestCreateEnforcesTaskLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < DefaultMaxTasks; i++ {
		_, err := f.svc.Create(ctx, board.NewTask(fmt.Sprintf("task %d", i)))
		require.NoError(t, err)
	}
	// spread tasks over columns; the cap is board-wide
	require.NoError(t, f.svc.MoveTask(ctx, board.ColumnTodo, 0, board.ColumnDone, 0))

	before := f.svc.Board()
	_, err := f.svc.Create(ctx, board.NewTask("one too many"))
	require.ErrorIs(t, err, ErrTaskLimit)
	assert.Equal(t, before, f.svc.Board())
	assert.Len(t, f.entries(t), DefaultMaxTasks)
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), board.NewTask("   "))
	require.ErrorIs(t, err, ErrEmptyTitle)
	assert.False(t, f.svc.CanUndo())
	assert.Empty(t, f.entries(t))
}

func TestCreateRejectsUnknownPriority(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), board.Task{Title: "x", Priority: "urgent"})
	require.Error(t, err)
	assert.Equal(t, 0, f.svc.Board().TaskCount())
}

func TestWithMaxTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithMaxTasks(1))
	_, err := f.svc.Create(ctx, board.NewTask("only"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, board.NewTask("extra"))
	assert.ErrorIs(t, err, ErrTaskLimit)
}

func TestMissingIDIsNoOpButLogged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, board.NewTask("keep"))
	require.NoError(t, err)
	before := f.svc.Board()

	require.NoError(t, f.svc.Delete(ctx, "ghost"))
	require.NoError(t, f.svc.Edit(ctx, "ghost", board.NewTask("ghost")))

	assert.Equal(t, before, f.svc.Board())
	ok, err := f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, board.Default(), f.svc.Board(), "no-ops must not add history entries")

	entries := f.entries(t)
	require.Len(t, entries, 3)
	assert.Equal(t, activity.ActionEdit, entries[0].Action)
	assert.Equal(t, "ghost", entries[0].TaskID)
	assert.Equal(t, activity.ActionDelete, entries[1].Action)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	seed := func(t *testing.T) *fixture {
		f := newFixture(t)
		for _, title := range []string{"c", "b", "a"} {
			_, err := f.svc.Create(ctx, board.NewTask(title))
			require.NoError(t, err)
		}
		return f
	}

	tests := []struct {
		name     string
		drop     board.DropResult
		wantTodo []string
		wantDone []string
	}{
		{
			name:     "reorder down",
			drop:     board.DropResult{Source: board.Location{ColumnID: board.ColumnTodo, Index: 0}, Destination: &board.Location{ColumnID: board.ColumnTodo, Index: 2}},
			wantTodo: []string{"b", "c", "a"},
			wantDone: []string{},
		},
		{
			name:     "reorder up",
			drop:     board.DropResult{Source: board.Location{ColumnID: board.ColumnTodo, Index: 2}, Destination: &board.Location{ColumnID: board.ColumnTodo, Index: 0}},
			wantTodo: []string{"c", "a", "b"},
			wantDone: []string{},
		},
		{
			name:     "swap first two",
			drop:     board.DropResult{Source: board.Location{ColumnID: board.ColumnTodo, Index: 1}, Destination: &board.Location{ColumnID: board.ColumnTodo, Index: 0}},
			wantTodo: []string{"b", "a", "c"},
			wantDone: []string{},
		},
		{
			name:     "across columns",
			drop:     board.DropResult{Source: board.Location{ColumnID: board.ColumnTodo, Index: 1}, Destination: &board.Location{ColumnID: board.ColumnDone, Index: 0}},
			wantTodo: []string{"a", "c"},
			wantDone: []string{"b"},
		},
		{
			name:     "destination clamped",
			drop:     board.DropResult{Source: board.Location{ColumnID: board.ColumnTodo, Index: 0}, Destination: &board.Location{ColumnID: board.ColumnDone, Index: 99}},
			wantTodo: []string{"b", "c"},
			wantDone: []string{"a"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := seed(t)
			require.NoError(t, f.svc.Move(ctx, tc.drop))
			b := f.svc.Board()
			assert.Equal(t, tc.wantTodo, titles(b[0]))
			assert.Equal(t, tc.wantDone, titles(b[2]))
			assert.Equal(t, 3, b.TaskCount())
			assert.Equal(t, b, f.stored(t))
		})
	}
}

func TestMoveLastTaskToHeadOfOccupiedColumn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, title := range []string{"c", "b", "a"} {
		_, err := f.svc.Create(ctx, board.NewTask(title))
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.MoveTask(ctx, board.ColumnTodo, 0, board.ColumnInProgress, 0))
	require.Equal(t, []string{"b", "c"}, titles(f.svc.Board()[0]))

	require.NoError(t, f.svc.MoveTask(ctx, board.ColumnTodo, 1, board.ColumnInProgress, 0))
	b := f.svc.Board()
	assert.Equal(t, []string{"b"}, titles(b[0]))
	assert.Equal(t, []string{"c", "a"}, titles(b[1]))
	assert.Equal(t, b, f.stored(t))

	ok, err := f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, titles(f.svc.Board()[0]))
	assert.Equal(t, []string{"a"}, titles(f.svc.Board()[1]))
}

func TestUndoDeleteRestoresTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.svc.Create(ctx, board.Task{Title: "Fix bug", Priority: board.PriorityHigh})
	require.NoError(t, err)
	afterCreate := f.svc.Board()

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.Equal(t, 0, f.svc.Board().TaskCount())

	ok, err := f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, afterCreate, f.svc.Board())
	assert.Equal(t, afterCreate, f.stored(t))
	task, loc, found := f.svc.Board().Find(created.ID)
	require.True(t, found)
	assert.Equal(t, board.ColumnTodo, loc.ColumnID)
	assert.Equal(t, "Fix bug", task.Title)
	assert.Equal(t, board.PriorityHigh, task.Priority)

	ok, err = f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, board.Default(), f.svc.Board())
	assert.Equal(t, board.Default(), f.stored(t))
	assert.False(t, f.svc.CanUndo())
	assert.True(t, f.svc.CanRedo())
}

func TestMoveNoOps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, board.NewTask("a"))
	require.NoError(t, err)
	before := f.svc.Board()

	for name, drop := range map[string]board.DropResult{
		"no destination": {Source: board.Location{ColumnID: board.ColumnTodo, Index: 0}},
		"unknown column": {Source: board.Location{ColumnID: "backlog", Index: 0}, Destination: &board.Location{ColumnID: board.ColumnDone}},
		"bad source":     {Source: board.Location{ColumnID: board.ColumnTodo, Index: 4}, Destination: &board.Location{ColumnID: board.ColumnDone}},
	} {
		require.NoError(t, f.svc.Move(ctx, drop), name)
		assert.Equal(t, before, f.svc.Board(), name)
	}
	_, err = f.svc.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, board.Default(), f.svc.Board())
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.svc.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Create(ctx, board.NewTask("a"))
	require.NoError(t, err)
	afterCreate := f.svc.Board()

	ok, err = f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, board.Default(), f.svc.Board())
	assert.Equal(t, board.Default(), f.stored(t))

	ok, err = f.svc.Redo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, afterCreate, f.svc.Board())
	assert.Equal(t, afterCreate, f.stored(t))

	// a fresh mutation after undo drops the redo branch
	_, err = f.svc.Undo(ctx)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, board.NewTask("b"))
	require.NoError(t, err)
	assert.False(t, f.svc.CanRedo())
	ok, err = f.svc.Redo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// activity is not rolled back
	assert.Len(t, f.entries(t), 2)
}

func TestUndoDepthBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithMaxHistory(2), WithMaxTasks(10))
	for i := 0; i < 4; i++ {
		_, err := f.svc.Create(ctx, board.NewTask(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	undone := 0
	for f.svc.CanUndo() {
		_, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		undone++
	}
	assert.Equal(t, 2, undone)
	assert.Equal(t, 2, f.svc.Board().TaskCount())
}

func TestTrackTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, board.NewTask("timed"))
	require.NoError(t, err)

	require.NoError(t, f.svc.TrackTime(ctx, "t1", 90))
	require.NoError(t, f.svc.TrackTime(ctx, "t1", 30))
	task, _, _ := f.svc.Board().Find("t1")
	assert.Equal(t, 30, task.TimeSpent, "tracked time overwrites")
	assert.Len(t, f.entries(t), 1)

	assert.ErrorIs(t, f.svc.TrackTime(ctx, "t1", -1), ErrNegativeTime)
	assert.NoError(t, f.svc.TrackTime(ctx, "ghost", 5))
}

type failingRepo struct{}

func (r *failingRepo) Load(context.Context) (board.Board, error) {
	return nil, store.ErrNotFound
}

func (r *failingRepo) Save(context.Context, board.Board) error {
	return errors.New("disk full")
}

func TestPersistFailureKeepsInMemoryCommit(t *testing.T) {
	svc := New(context.Background(), &failingRepo{}, nil)
	_, err := svc.Create(context.Background(), board.NewTask("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, svc.Board().TaskCount())
}

func TestBoardReturnsCopy(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), board.NewTask("a"))
	require.NoError(t, err)
	b := f.svc.Board()
	b[0].Tasks[0].Title = "mutated"
	assert.Equal(t, "a", f.svc.Board()[0].Tasks[0].Title)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	src := newFixture(t, WithClock(func() time.Time { return day }))
	_, err := src.svc.Create(ctx, board.Task{Title: "Fix bug", Priority: board.PriorityHigh, Labels: []string{"Bug", "Urgent"}})
	require.NoError(t, err)
	_, err = src.svc.Create(ctx, board.NewTask("Docs"))
	require.NoError(t, err)
	require.NoError(t, src.svc.MoveTask(ctx, board.ColumnTodo, 1, board.ColumnInProgress, 0))
	require.NoError(t, src.svc.TrackTime(ctx, "t1", 7200))

	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	recurring := board.NewTask("Standup notes")
	recurring.DueDate = &due
	recurring.IsRecurring = true
	recurring.RecurrencePattern = board.RecurWeekly
	recurring = board.ScheduleRecurrence(recurring, time.Now().In(time.FixedZone("EST", -5*3600)))
	_, err = src.svc.Create(ctx, recurring)
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := src.svc.Export(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kanban-board-2024-03-09.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"id\": \"todo\""), string(data))

	dst := newFixture(t)
	require.NoError(t, dst.svc.ImportFile(ctx, path))
	assert.Equal(t, src.svc.Board(), dst.svc.Board())
	assert.Equal(t, src.svc.Board(), dst.stored(t))

	ok, err := dst.svc.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, board.Default(), dst.svc.Board())
}

func TestImportRejectsInvalidPayloads(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"not json":        "hello",
		"object":          `{"columns":[]}`,
		"empty":           "",
		"missing columns": `[{"id":"todo","title":"To Do","tasks":[]}]`,
		"bad priority":    `[{"id":"todo","title":"To Do","tasks":[{"id":"a","title":"a","priority":"asap","labels":[]}]},{"id":"inProgress","title":"In Progress","tasks":[]},{"id":"done","title":"Done","tasks":[]}]`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(ctx, board.NewTask("keep"))
			require.NoError(t, err)
			before := f.svc.Board()

			err = f.svc.Import(ctx, strings.NewReader(payload))
			require.ErrorIs(t, err, ErrInvalidImport)
			assert.Equal(t, before, f.svc.Board())
			assert.Equal(t, before, f.stored(t))
		})
	}
}

func TestImportPermissiveMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithStrictImport(false))
	payload := `[{"id":"todo","title":"To Do","tasks":[{"id":"a","title":"a","priority":"asap","labels":[]}]},{"id":"inProgress","title":"In Progress"},{"id":"done","title":"Done","tasks":[]}]`
	require.NoError(t, f.svc.Import(ctx, bytes.NewBufferString(payload)))
	b := f.svc.Board()
	require.Len(t, b, 3)
	assert.Equal(t, board.Priority("asap"), b[0].Tasks[0].Priority)
	assert.NotNil(t, b[1].Tasks)

	err := f.svc.Import(ctx, bytes.NewBufferString(`[{"id":"backlog","title":"Backlog"}]`))
	require.ErrorIs(t, err, ErrInvalidImport)
	assert.Equal(t, b, f.svc.Board())
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "kanban-board-2023-12-31.json", ExportFileName(time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)))
}

func TestAnalytics(t *testing.T) {
	b := board.Default()
	b[0].Tasks = []board.Task{{ID: "a", TimeSpent: 1800}, {ID: "b", TimeSpent: 1800}}
	b[2].Tasks = []board.Task{{ID: "c", TimeSpent: 5400}}

	stats := Analytics(b)
	require.Len(t, stats, 3)
	assert.Equal(t, ColumnStats{Name: "To Do", Tasks: 2, TimeSpentHours: 1}, stats[0])
	assert.Equal(t, ColumnStats{Name: "In Progress", Tasks: 0, TimeSpentHours: 0}, stats[1])
	assert.Equal(t, ColumnStats{Name: "Done", Tasks: 1, TimeSpentHours: 1.5}, stats[2])
}
