// Package activity keeps the append-only audit trail of task actions. The
// trail is capped, most recent first, and lives under its own storage key.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/taskboard/internal/logging"
	"github.com/kingrea/taskboard/internal/store"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 50

// Action names the kind of change an entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Entry is one logged action.
type Entry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	TaskID    string    `json:"taskId"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

// Log reads and appends entries stored under a single key.
type Log struct {
	kv     store.KV
	key    string
	limit  int
	now    func() time.Time
	newID  func() string
	logger *logging.Logger
}

// Option customizes a Log during construction.
type Option func(*Log)

// WithLimit overrides how many entries are retained.
func WithLimit(limit int) Option {
	return func(l *Log) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithClock overrides the clock used for entry timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithIDGenerator overrides how entry identifiers are produced.
func WithIDGenerator(gen func() string) Option {
	return func(l *Log) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// WithLogger routes corruption warnings to logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an activity log stored under key in kv.
func New(kv store.KV, key string, opts ...Option) *Log {
	l := &Log{
		kv:     kv,
		key:    key,
		limit:  DefaultLimit,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record prepends a new entry and trims the log to its limit. A stored value
// that is not a JSON list is replaced by a log holding only the new entry.
func (l *Log) Record(ctx context.Context, action Action, taskID, details string) (Entry, error) {
	entry := Entry{
		ID:        l.newID(),
		Action:    action,
		TaskID:    taskID,
		Timestamp: l.now().UTC(),
		Details:   details,
	}

	existing, err := l.read(ctx)
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return entry, err
		}
		l.logger.Warnw("Corrupt activity log found, resetting", "key", l.key, "error", err)
		existing = nil
	}

	entries := make([]Entry, 0, min(len(existing)+1, l.limit))
	entries = append(entries, entry)
	for _, prev := range existing {
		if len(entries) >= l.limit {
			break
		}
		entries = append(entries, prev)
	}
	if err := l.write(ctx, entries); err != nil {
		return entry, err
	}
	return entry, nil
}

// List returns the stored entries, most recent first. Corrupt data yields an
// empty list.
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	entries, err := l.read(ctx)
	if err != nil {
		if errors.Is(err, errCorrupt) {
			l.logger.Warnw("Corrupt activity log ignored", "key", l.key, "error", err)
			return []Entry{}, nil
		}
		return nil, err
	}
	return entries, nil
}

var errCorrupt = errors.New("activity: stored log is not a list")

func (l *Log) read(ctx context.Context) ([]Entry, error) {
	data, err := l.kv.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("activity: read %s: %w", l.key, err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if raw == nil {
		return []Entry{}, nil
	}
	if _, ok := raw.([]any); !ok {
		return nil, fmt.Errorf("%w: got %T", errCorrupt, raw)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return entries, nil
}

func (l *Log) write(ctx context.Context, entries []Entry) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("activity: encode: %w", err)
	}
	if err := l.kv.Set(ctx, l.key, encoded); err != nil {
		return fmt.Errorf("activity: write %s: %w", l.key, err)
	}
	return nil
}
