package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration coalesces change bursts; the external source often
// fires many micro-mutations for one user action.
const DefaultDebounceDuration = 250 * time.Millisecond

// Debouncer delays a callback until a quiet period has passed since the
// last trigger (trailing edge). A burst of triggers within the window yields
// exactly one callback.
type Debouncer struct {
	d time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{d: d}
}

// Trigger schedules fn after the quiet window, resetting the window if a
// trigger is already pending. The last fn wins.
func (db *Debouncer) Trigger(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, fn)
}

// Duration returns the quiet window.
func (db *Debouncer) Duration() time.Duration {
	return db.d
}

// Cancel drops any pending trigger.
func (db *Debouncer) Cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}
