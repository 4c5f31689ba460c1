// Package timer provides cancellable scheduled tasks. Every scheduled task
// returns a Handle that the owner stops on each exit path.
package timer

import (
	"sync"
	"time"
)

// Handle cancels a scheduled task. Stop is safe to call more than once and
// after the task has run.
type Handle interface {
	Stop()
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

// Real schedules on the runtime timer.
type Real struct{}

func (Real) AfterFunc(d time.Duration, fn func()) Handle {
	return realHandle{t: time.AfterFunc(d, fn)}
}

type realHandle struct {
	t *time.Timer
}

func (h realHandle) Stop() { h.t.Stop() }

// Fake is a manually advanced Scheduler for tests. Due tasks run on the
// goroutine calling Advance, in deadline order.
type Fake struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTask) Stop() {
	t.stopped = true
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	task := &fakeTask{at: f.now + d, seq: f.seq, fn: fn}
	f.tasks = append(f.tasks, task)
	return fakeStopper{f: f, t: task}
}

type fakeStopper struct {
	f *Fake
	t *fakeTask
}

func (s fakeStopper) Stop() {
	s.f.mu.Lock()
	s.t.Stop()
	s.f.mu.Unlock()
}

// Advance moves the clock forward, running every task that becomes due,
// including tasks scheduled by tasks that ran.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.popDue(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.at
		f.mu.Unlock()
		next.fn()
	}
}

// Pending counts tasks that are scheduled and not stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (f *Fake) popDue(target time.Duration) *fakeTask {
	idx := -1
	for i, t := range f.tasks {
		if t.stopped || t.at > target {
			continue
		}
		if idx == -1 || t.at < f.tasks[idx].at || (t.at == f.tasks[idx].at && t.seq < f.tasks[idx].seq) {
			idx = i
		}
	}
	if idx == -1 {
		f.compact()
		return nil
	}
	task := f.tasks[idx]
	f.tasks = append(f.tasks[:idx], f.tasks[idx+1:]...)
	return task
}

func (f *Fake) compact() {
	live := f.tasks[:0]
	for _, t := range f.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	f.tasks = live
}
