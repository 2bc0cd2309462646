package app

import (
	"sync"
	"time"
)

// TaskID identifies a scheduled task. Zero is never a live task.
type TaskID uint64

// Scheduler runs cancellable one-shot tasks.
type Scheduler struct {
	mu     sync.Mutex
	timers map[TaskID]*time.Timer
	next   TaskID
	closed bool
	wg     sync.WaitGroup
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[TaskID]*time.Timer)}
}

// After runs fn once after d unless cancelled first. Returns 0 after Close.
func (s *Scheduler) After(d time.Duration, fn func()) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	s.next++
	id := s.next

	s.wg.Add(1)
	s.timers[id] = time.AfterFunc(d, func() {
		defer s.wg.Done()

		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()

		if live {
			fn()
		}
	})

	return id
}

// Cancel stops a task. It reports whether the task was still scheduled.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id)
}

func (s *Scheduler) cancelLocked(id TaskID) bool {
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	if t.Stop() {
		// callback will never run
		s.wg.Done()
	}
	return true
}

// CancelAll stops every scheduled task and returns how many were stopped.
// Callbacks already running are not waited for.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAllLocked()
}

func (s *Scheduler) cancelAllLocked() int {
	n := 0
	for id := range s.timers {
		if s.cancelLocked(id) {
			n++
		}
	}
	return n
}

// Close cancels every task and waits for running callbacks to return. It must
// not be called from a task.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelAllLocked()
	s.mu.Unlock()

	s.wg.Wait()
}
