// Package history keeps a bounded undo/redo stack around a present value.
package history

// DefaultLimit is the number of past snapshots retained when no limit is given.
const DefaultLimit = 10

// History holds the past/present/future triple. Snapshots are stored as
// given; callers must not mutate a value after committing it.
type History[T any] struct {
	past    []T
	present T
	future  []T
	limit   int
}

// New creates a history seeded with initial. A non-positive limit falls back
// to DefaultLimit.
func New[T any](initial T, limit int) *History[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History[T]{present: initial, limit: limit}
}

// Limit returns the maximum number of past snapshots.
func (h *History[T]) Limit() int {
	return h.limit
}

// Present returns the current value.
func (h *History[T]) Present() T {
	return h.present
}

// Commit makes next the present value, pushes the old present onto past and
// clears future. It never fails and performs no validation.
func (h *History[T]) Commit(next T) {
	h.past = h.trim(append(h.past, h.present))
	h.present = next
	h.future = nil
}

// Undo restores the most recent past snapshot. It reports false when there
// is nothing to undo.
func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	previous := h.past[last]
	h.past = h.past[:last:last]
	h.future = append([]T{h.present}, h.future...)
	h.present = previous
	return true
}

// Redo reapplies the first future snapshot. It reports false when there is
// nothing to redo.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = h.trim(append(h.past, h.present))
	h.present = next
	return true
}

// CanUndo reports whether Undo would change the present.
func (h *History[T]) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo reports whether Redo would change the present.
func (h *History[T]) CanRedo() bool {
	return len(h.future) > 0
}

// Past returns a copy of the past stack, oldest first.
func (h *History[T]) Past() []T {
	return append([]T(nil), h.past...)
}

// Future returns a copy of the future stack, next redo first.
func (h *History[T]) Future() []T {
	return append([]T(nil), h.future...)
}

func (h *History[T]) trim(past []T) []T {
	if len(past) <= h.limit {
		return past
	}
	kept := make([]T, h.limit)
	copy(kept, past[len(past)-h.limit:])
	return kept
}
