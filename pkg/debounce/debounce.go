package debounce

import (
	"sync"
	"time"
)

// Scheduler owns one cancellable deferred task per key.
// Arming a key replaces whatever was pending for it.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	seq     uint64
	stopped bool
}

type task struct {
	gen   uint64
	timer *time.Timer
	fn    func()
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*task)}
}

// Arm cancels any pending task for key and schedules fn after delay.
// After Stop, Arm is a no-op and reports false.
func (s *Scheduler) Arm(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}
	s.seq++
	t := &task{gen: s.seq, fn: fn}
	gen := t.gen
	t.timer = time.AfterFunc(delay, func() { s.fire(key, gen) })
	s.tasks[key] = t
	return true
}

// fire runs the task only if it is still the latest one armed for key.
// A timer that lost the race against Arm or Cancel sees a different generation and exits.
func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, key)
	s.mu.Unlock()
	t.fn()
}

// Cancel drops the pending task for key without running it.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Flush runs the pending task for key now, on the caller's goroutine.
// It reports whether a task was pending.
func (s *Scheduler) Flush(key string) bool {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if ok {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.fn()
	return true
}

// FlushAll runs every pending task and returns how many ran.
func (s *Scheduler) FlushAll() int {
	s.mu.Lock()
	pending := make([]*task, 0, len(s.tasks))
	for k, t := range s.tasks {
		t.timer.Stop()
		pending = append(pending, t)
		delete(s.tasks, k)
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.fn()
	}
	return len(pending)
}

// Stop flushes pending tasks and refuses new ones.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return s.FlushAll()
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
