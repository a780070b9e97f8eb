// Package board holds the kanban data model: tasks, the three fixed columns
// and the board that groups them.
package board

import (
	"errors"
	"fmt"
)

// ColumnID identifies one of the fixed board columns.
type ColumnID string

const (
	ColumnTodo       ColumnID = "todo"
	ColumnInProgress ColumnID = "inProgress"
	ColumnDone       ColumnID = "done"
)

// ColumnIDs lists the fixed columns in display order.
var ColumnIDs = []ColumnID{ColumnTodo, ColumnInProgress, ColumnDone}

var columnTitles = map[ColumnID]string{
	ColumnTodo:       "To Do",
	ColumnInProgress: "In Progress",
	ColumnDone:       "Done",
}

// Title returns the display title of a known column.
func (id ColumnID) Title() string {
	return columnTitles[id]
}

// Valid reports whether id names one of the fixed columns.
func (id ColumnID) Valid() bool {
	_, ok := columnTitles[id]
	return ok
}

// Column is a named, ordered bucket of tasks.
type Column struct {
	ID    ColumnID `json:"id"`
	Title string   `json:"title"`
	Tasks []Task   `json:"tasks"`
}

// Board is the ordered list of the three columns.
type Board []Column

// Location addresses a slot inside a column.
type Location struct {
	ColumnID ColumnID
	Index    int
}

// DropResult describes a finished drag. Destination is nil when the drag
// ended outside a valid target.
type DropResult struct {
	Source      Location
	Destination *Location
}

// Default returns an empty board with the three fixed columns.
func Default() Board {
	b := make(Board, 0, len(ColumnIDs))
	for _, id := range ColumnIDs {
		b = append(b, Column{ID: id, Title: id.Title(), Tasks: []Task{}})
	}
	return b
}

// Clone returns a deep copy so snapshots never share task storage.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for i, col := range b {
		out[i] = Column{ID: col.ID, Title: col.Title}
		if col.Tasks != nil {
			out[i].Tasks = make([]Task, len(col.Tasks))
			for j, task := range col.Tasks {
				out[i].Tasks[j] = task.Clone()
			}
		}
	}
	return out
}

// TaskCount returns the number of tasks across all columns.
func (b Board) TaskCount() int {
	total := 0
	for _, col := range b {
		total += len(col.Tasks)
	}
	return total
}

// ColumnIndex returns the position of the column with id, or -1.
func (b Board) ColumnIndex(id ColumnID) int {
	for i, col := range b {
		if col.ID == id {
			return i
		}
	}
	return -1
}

// Find locates a task by identifier.
func (b Board) Find(taskID string) (Task, Location, bool) {
	for _, col := range b {
		for idx, task := range col.Tasks {
			if task.ID == taskID {
				return task, Location{ColumnID: col.ID, Index: idx}, true
			}
		}
	}
	return Task{}, Location{}, false
}

// ValidateColumns checks that b holds exactly the three fixed columns in
// order.
func (b Board) ValidateColumns() error {
	if len(b) != len(ColumnIDs) {
		return fmt.Errorf("board: expected %d columns, got %d", len(ColumnIDs), len(b))
	}
	var errs []error
	for i, col := range b {
		if col.ID != ColumnIDs[i] {
			errs = append(errs, fmt.Errorf("board: column %d has id %q, want %q", i, col.ID, ColumnIDs[i]))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the structural invariants: the three fixed columns in
// order, and every task valid and present exactly once.
func (b Board) Validate() error {
	if err := b.ValidateColumns(); err != nil {
		return err
	}
	seen := map[string]ColumnID{}
	var errs []error
	for _, col := range b {
		for _, task := range col.Tasks {
			if task.ID == "" {
				errs = append(errs, fmt.Errorf("board: column %s has a task without id", col.ID))
				continue
			}
			if prev, dup := seen[task.ID]; dup {
				errs = append(errs, fmt.Errorf("board: task %q appears in %s and %s", task.ID, prev, col.ID))
				continue
			}
			seen[task.ID] = col.ID
			if err := task.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
