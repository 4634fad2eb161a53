package feedback

import (
	"sync"
	"testing"
	"time"
)

// fakeTimers records scheduled callbacks so tests can fire them by hand.
type fakeTimers struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (ft *fakeTimers) after(d time.Duration, f func()) func() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.pending = append(ft.pending, t)
	return func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

// fire runs timer i even if it was stopped, mimicking a timer that had
// already started when Stop was called.
func (ft *fakeTimers) fire(i int) {
	ft.mu.Lock()
	t := ft.pending[i]
	ft.mu.Unlock()
	t.f()
}

func TestShowThenTimeout(t *testing.T) {
	ft := &fakeTimers{}
	c := NewWithAfterFunc(0, ft.after)

	c.Show("Removed from Watch Later", Success)
	fb := c.Current()
	if !fb.Visible || fb.Message != "Removed from Watch Later" || fb.Severity != Success {
		t.Fatalf("after Show: %+v", fb)
	}
	if ft.pending[0].d != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", ft.pending[0].d, DefaultTimeout)
	}

	ft.fire(0)
	if c.Current().Visible {
		t.Error("feedback should be hidden after the timeout")
	}
}

func TestShowReplaces(t *testing.T) {
	ft := &fakeTimers{}
	c := NewWithAfterFunc(time.Second, ft.after)

	c.Show("first", Success)
	c.Show("second", Error)

	fb := c.Current()
	if fb.Message != "second" || fb.Severity != Error {
		t.Fatalf("expected replacement, got %+v", fb)
	}
	if !ft.pending[0].stopped {
		t.Error("first timer should be stopped")
	}

	// A stale timer firing late must not hide the replacement.
	ft.fire(0)
	if !c.Current().Visible {
		t.Error("stale timer hid the newer feedback")
	}

	ft.fire(1)
	if c.Current().Visible {
		t.Error("current timer should hide feedback")
	}
}

func TestDismiss(t *testing.T) {
	ft := &fakeTimers{}
	c := NewWithAfterFunc(time.Second, ft.after)

	var seen []Feedback
	c.Subscribe(func(fb Feedback) { seen = append(seen, fb) })

	c.Dismiss() // hidden → no transition
	if len(seen) != 0 {
		t.Fatalf("dismiss while hidden notified %d times", len(seen))
	}

	c.Show("oops", Error)
	c.Dismiss()
	if c.Current().Visible {
		t.Error("Dismiss should hide")
	}
	if !ft.pending[0].stopped {
		t.Error("Dismiss should stop the timer")
	}

	ft.fire(0) // late timer after dismiss
	if len(seen) != 2 {
		t.Errorf("expected 2 transitions (show, hide), got %d", len(seen))
	}
	if !seen[0].Visible || seen[1].Visible {
		t.Errorf("transitions = %+v", seen)
	}
}

func TestSeqIncreases(t *testing.T) {
	ft := &fakeTimers{}
	c := NewWithAfterFunc(time.Second, ft.after)
	c.Show("a", Success)
	first := c.Current().Seq
	c.Show("a", Success)
	if c.Current().Seq <= first {
		t.Error("Seq should increase on every Show")
	}
}

func TestUnsubscribe(t *testing.T) {
	ft := &fakeTimers{}
	c := NewWithAfterFunc(time.Second, ft.after)
	calls := 0
	cancel := c.Subscribe(func(Feedback) { calls++ })
	c.Show("a", Success)
	cancel()
	c.Dismiss()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCloseIgnoresShow(t *testing.T) {
	ft := &fakeTimers{}
	c := NewWithAfterFunc(time.Second, ft.after)
	c.Close()
	c.Show("late", Success)
	if c.Current().Visible {
		t.Error("Show after Close should be ignored")
	}
}

func TestRealTimer(t *testing.T) {
	c := New(20 * time.Millisecond)
	done := make(chan struct{})
	c.Subscribe(func(fb Feedback) {
		if !fb.Visible {
			close(done)
		}
	})
	c.Show("tick", Success)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feedback never expired")
	}
}
