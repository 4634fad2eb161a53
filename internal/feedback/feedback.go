// Package feedback implements a single-slot, auto-expiring notification
// channel. Showing new feedback replaces the current one; nothing queues.
package feedback

import (
	"sync"
	"time"
)

// DefaultTimeout is how long feedback stays visible without a dismissal.
const DefaultTimeout = 3000 * time.Millisecond

// Severity is the tone of a notification.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
)

// Feedback is the observable state of the channel. Seq increases on every
// Show so observers can tell a replacement from a repeat.
type Feedback struct {
	Visible  bool
	Message  string
	Severity Severity
	Seq      uint64
}

// AfterFunc schedules f after d and returns a function that cancels it.
// time.AfterFunc satisfies it through the default adapter.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func stdAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Channel is safe for concurrent use. Observers are invoked with the
// channel's lock held and must not call back into it.
type Channel struct {
	mu      sync.Mutex
	current Feedback
	seq     uint64
	stop    func() bool
	timeout time.Duration
	after   AfterFunc
	closed  bool

	observers map[int]func(Feedback)
	nextObs   int
}

// New creates a hidden channel. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Channel {
	return NewWithAfterFunc(timeout, stdAfterFunc)
}

// NewWithAfterFunc is New with an injectable scheduler.
func NewWithAfterFunc(timeout time.Duration, after AfterFunc) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{
		timeout:   timeout,
		after:     after,
		observers: make(map[int]func(Feedback)),
	}
}

// Show makes msg visible and re-arms the auto-hide timer.
func (c *Channel) Show(msg string, sev Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.stop != nil {
		c.stop()
	}
	c.seq++
	seq := c.seq
	c.current = Feedback{Visible: true, Message: msg, Severity: sev, Seq: seq}
	c.stop = c.after(c.timeout, func() { c.expire(seq) })
	c.notify()
}

// Dismiss hides the current feedback immediately. It is a no-op when hidden.
func (c *Channel) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hide()
}

// Current returns the present state.
func (c *Channel) Current() Feedback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers fn for every transition and returns its cancel func.
func (c *Channel) Subscribe(fn func(Feedback)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close stops the pending timer and ignores further calls to Show.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.closed = true
}

// expire runs on the timer goroutine. A timer superseded by a later Show
// carries a stale seq and does nothing.
func (c *Channel) expire(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return
	}
	c.hide()
}

func (c *Channel) hide() {
	if !c.current.Visible {
		return
	}
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.current.Visible = false
	c.notify()
}

func (c *Channel) notify() {
	for _, fn := range c.observers {
		fn(c.current)
	}
}
