package pages

import (
	"sync"
	"time"
)

// Tracker remembers when the pages task last completed so the next run can
// render only pages modified since. It starts in the reset state: the first
// run always renders everything.
type Tracker struct {
	mu      sync.Mutex
	lastRun time.Time
	reset   bool
}

// NewTracker returns a tracker that will request a full run first.
func NewTracker() *Tracker {
	return &Tracker{reset: true}
}

// Reset forces the next run to render every page.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset = true
}

// Since returns the modification cutoff for the next run. A zero time means
// a full run.
func (t *Tracker) Since() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reset {
		return time.Time{}
	}
	return t.lastRun
}

// Complete records a successful run that started at start and clears the
// reset flag. Failed runs must not call Complete, so their pages are retried.
func (t *Tracker) Complete(start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastRun = start
	t.reset = false
}
