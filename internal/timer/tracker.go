// Package timer measures the wall-clock time spent on a task while its
// tracker is running.
package timer

import (
	"context"
	"fmt"
	"time"
)

// Tracker is a stopwatch with two states: idle and running. Elapsed is
// always recomputed from the start instant, so missed ticks never drift.
type Tracker struct {
	start   time.Time
	running bool
	elapsed int
}

// Start begins a new measurement at now. Elapsed restarts at zero.
func (t *Tracker) Start(now time.Time) {
	t.start = now
	t.running = true
	t.elapsed = 0
}

// Stop ends the measurement and keeps the last elapsed value for display.
func (t *Tracker) Stop() {
	t.start = time.Time{}
	t.running = false
}

// Tick recomputes the whole seconds elapsed since Start. It reports false
// when the tracker is idle.
func (t *Tracker) Tick(now time.Time) (int, bool) {
	if !t.running {
		return t.elapsed, false
	}
	seconds := int(now.Sub(t.start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	t.elapsed = seconds
	return seconds, true
}

// Running reports whether a measurement is in progress.
func (t *Tracker) Running() bool {
	return t.running
}

// Elapsed returns the last computed number of seconds.
func (t *Tracker) Elapsed() int {
	return t.elapsed
}

// Format renders seconds as HH:MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// Run starts the tracker and calls report with the elapsed seconds on every
// interval until ctx is cancelled. It returns the last reported value; time
// after the final tick is not counted.
func Run(ctx context.Context, t *Tracker, interval time.Duration, clock func() time.Time, report func(int) error) (int, error) {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	t.Start(clock())
	defer t.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return t.Elapsed(), nil
		case <-ticker.C:
			elapsed, _ := t.Tick(clock())
			if report == nil {
				continue
			}
			if err := report(elapsed); err != nil {
				return elapsed, err
			}
		}
	}
}
