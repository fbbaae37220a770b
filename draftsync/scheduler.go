package draftsync

import (
	"sync"
	"time"
)

// Scheduler is a cancellable debounce handle: at most one timer is live at
// a time, and scheduling again cancels the pending one (last-edit-wins, not
// batching). It carries no UI lifecycle coupling so the auto-save policy
// can be tested without a rendering harness.
type Scheduler struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewScheduler creates a scheduler with a fixed debounce delay.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{delay: delay}
}

// Schedule arms the timer to run fn after the delay, cancelling any pending
// timer first. fn runs on its own goroutine.
func (s *Scheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, fn)
}

// Cancel stops the pending timer, if any. A callback that already started
// running is not interrupted.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
