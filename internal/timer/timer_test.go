package timer

import (
	"testing"
	"time"
)

func TestFakeRunsDueTasksInOrder(t *testing.T) {
	f := NewFake()
	var got []string
	f.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	f.AfterFunc(time.Second, func() { got = append(got, "a") })
	f.AfterFunc(5*time.Second, func() { got = append(got, "c") })

	f.Advance(3 * time.Second)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	if f.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", f.Pending())
	}
}

func TestFakeStopCancelsTask(t *testing.T) {
	f := NewFake()
	ran := false
	h := f.AfterFunc(time.Second, func() { ran = true })
	h.Stop()
	h.Stop()
	f.Advance(10 * time.Second)
	if ran {
		t.Fatal("stopped task ran")
	}
	if f.Pending() != 0 {
		t.Fatalf("expected no pending tasks, got %d", f.Pending())
	}
}

func TestFakeRunsChainedTasks(t *testing.T) {
	f := NewFake()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 3 {
			f.AfterFunc(time.Second, tick)
		}
	}
	f.AfterFunc(time.Second, tick)

	f.Advance(10 * time.Second)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}
