package board

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrEmptyTitle is returned when a task title is blank after trimming.
var ErrEmptyTitle = errors.New("board: task title is required")

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the accepted priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Next cycles to the following priority, wrapping after high.
func (p Priority) Next() Priority {
	for i, candidate := range Priorities {
		if candidate == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityMedium
}

// RecurrencePattern controls how often a recurring task comes back.
type RecurrencePattern string

const (
	RecurDaily   RecurrencePattern = "daily"
	RecurWeekly  RecurrencePattern = "weekly"
	RecurMonthly RecurrencePattern = "monthly"
)

// RecurrencePatterns lists the accepted recurrence patterns.
var RecurrencePatterns = []RecurrencePattern{RecurDaily, RecurWeekly, RecurMonthly}

// Next cycles to the following pattern, wrapping after monthly.
func (p RecurrencePattern) Next() RecurrencePattern {
	for i, candidate := range RecurrencePatterns {
		if candidate == p {
			return RecurrencePatterns[(i+1)%len(RecurrencePatterns)]
		}
	}
	return RecurDaily
}

// After returns the next occurrence following from, in UTC. Unknown patterns
// yield nil.
func (p RecurrencePattern) After(from time.Time) *time.Time {
	from = from.UTC()
	var next time.Time
	switch p {
	case RecurDaily:
		next = from.AddDate(0, 0, 1)
	case RecurWeekly:
		next = from.AddDate(0, 0, 7)
	case RecurMonthly:
		next = from.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &next
}

// AvailableLabels is the label catalogue offered by the editors.
var AvailableLabels = []string{"Bug", "Feature", "Documentation", "Enhancement", "Urgent"}

// Task is a single unit of work on the board.
type Task struct {
	ID                string            `json:"id" validate:"required"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Assignee          string            `json:"assignee,omitempty"`
	Priority          Priority          `json:"priority" validate:"oneof=low medium high"`
	Labels            []string          `json:"labels"`
	IsRecurring       bool              `json:"isRecurring,omitempty"`
	RecurrencePattern RecurrencePattern `json:"recurrencePattern,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	NextRecurrence    *time.Time        `json:"nextRecurrence,omitempty"`
	DueDate           *time.Time        `json:"dueDate,omitempty"`
	TimeSpent         int               `json:"timeSpent" validate:"gte=0"`
	Progress          float64           `json:"progress"`
}

// IDGenerator produces identifiers for new tasks.
type IDGenerator func() string

// NewID returns a random identifier that is safe under rapid creation.
func NewID() string {
	return uuid.NewString()
}

// NewTask builds a task with the defaults used by the creation dialog.
func NewTask(title string) Task {
	return Task{
		Title:    title,
		Priority: PriorityMedium,
		Labels:   []string{},
	}
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	if t.Labels != nil {
		out.Labels = make([]string, len(t.Labels))
		copy(out.Labels, t.Labels)
	}
	if t.NextRecurrence != nil {
		next := *t.NextRecurrence
		out.NextRecurrence = &next
	}
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	return out
}

// HasLabel reports whether label is attached to the task.
func (t Task) HasLabel(label string) bool {
	for _, existing := range t.Labels {
		if existing == label {
			return true
		}
	}
	return false
}

// ToggleLabel removes label when present and appends it otherwise.
func (t *Task) ToggleLabel(label string) {
	if t.HasLabel(label) {
		kept := make([]string, 0, len(t.Labels))
		for _, existing := range t.Labels {
			if existing != label {
				kept = append(kept, existing)
			}
		}
		t.Labels = kept
		return
	}
	t.Labels = append(t.Labels, label)
}

// ScheduleRecurrence derives the recurrence fields at save time. Tasks that
// are not recurring lose their pattern and next occurrence.
func ScheduleRecurrence(t Task, now time.Time) Task {
	if !t.IsRecurring {
		t.RecurrencePattern = ""
		t.NextRecurrence = nil
		return t
	}
	t.NextRecurrence = t.RecurrencePattern.After(now)
	return t
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func taskValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks enum fields and counters. Title emptiness is only enforced
// at creation time, see ValidateNew.
func (t Task) Validate() error {
	if err := taskValidator().Struct(t); err != nil {
		return fmt.Errorf("board: invalid task %q: %w", t.ID, err)
	}
	return nil
}

// ValidateNew applies the creation rules on top of Validate.
func (t Task) ValidateNew() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	return t.Validate()
}
