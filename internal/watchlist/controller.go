package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/feedback"
	"github.com/makavanaraju78/Streamverse/internal/session"
)

var (
	// ErrUnknownItem is returned by Remove for ids not on the current list.
	ErrUnknownItem = errors.New("item is not on the watch later list")
	// ErrPending is returned by Remove while the same id is already being removed.
	ErrPending = errors.New("removal already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("watch later controller closed")
)

// Catalog is the slice of the media catalog service the controller needs.
type Catalog interface {
	ListSaved(ctx context.Context) ([]client.MediaItem, error)
	RemoveSaved(ctx context.Context, itemID string) error
}

// Controller owns one view's list state and feedback channel. It is safe for
// concurrent use. Observers run with the controller's lock held and must not
// call back into it.
type Controller struct {
	catalog Catalog
	fb      *feedback.Channel

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	closed bool

	// removedDuringLoad collects removals confirmed while a load is in
	// flight; they are subtracted from that load's result.
	removedDuringLoad map[string]bool

	observers map[int]func(State)
	nextObs   int
}

// New creates a controller. fb may be nil, in which case a channel with the
// default timeout is created.
func New(catalog Catalog, fb *feedback.Channel) *Controller {
	if fb == nil {
		fb = feedback.New(feedback.DefaultTimeout)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		catalog:   catalog,
		fb:        fb,
		ctx:       ctx,
		cancel:    cancel,
		observers: make(map[int]func(State)),
	}
}

// Feedback returns the controller's feedback channel.
func (c *Controller) Feedback() *feedback.Channel {
	return c.fb
}

// State returns a snapshot of the current list state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn for every published state and returns its cancel func.
func (c *Controller) Subscribe(fn func(State)) func() {
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

// Enter runs the session gate. Anonymous viewers get the denial state and the
// catalog is never contacted; authenticated viewers trigger a Load.
func (c *Controller) Enter(ctx context.Context, s session.Session) (session.Decision, error) {
	if session.Gate(s) == session.Deny {
		c.mu.Lock()
		if !c.closed {
			c.state = State{Denied: true, Err: session.DeniedMessage}
			c.publish()
		}
		c.mu.Unlock()
		return session.Deny, nil
	}

	c.mu.Lock()
	if c.state.Denied {
		c.state = State{}
	}
	c.mu.Unlock()

	_, err := c.Load(ctx)
	return session.Allow, err
}

// Load fetches the list once. It returns started=false without contacting the
// catalog when another load is still in flight. Loading is cleared on every
// path, including a panicking collaborator.
func (c *Controller) Load(ctx context.Context) (started bool, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if c.state.Loading {
		c.mu.Unlock()
		return false, nil
	}
	c.state.Loading = true
	c.removedDuringLoad = make(map[string]bool)
	c.publish()
	c.mu.Unlock()

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	items, err := c.list(loadCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		c.state.Loading = false
		c.removedDuringLoad = nil
		c.publish()
	}()

	if c.closed {
		return true, ErrClosed
	}
	if err != nil {
		c.state.Err = client.MessageOr(err, fetchFallback(err))
		if !c.state.Loaded {
			c.state.Items = nil
		}
		log.Printf("watch later: load failed (%s): %v", client.KindOf(err), err)
		return true, err
	}

	c.state.Items = uniqueExcept(items, c.removedDuringLoad)
	c.state.Err = ""
	c.state.Loaded = true
	return true, nil
}

// Remove deletes itemID on the catalog and, only after the catalog confirms,
// filters it out locally. The outcome is reported on the feedback channel.
func (c *Controller) Remove(ctx context.Context, itemID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, ok := c.state.Find(itemID); !ok {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	if c.state.Pending[itemID] {
		c.mu.Unlock()
		return ErrPending
	}
	if c.state.Pending == nil {
		c.state.Pending = make(map[string]bool)
	}
	c.state.Pending[itemID] = true
	c.publish()
	c.mu.Unlock()

	removeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	err := c.remove(removeCtx, itemID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	delete(c.state.Pending, itemID)
	if err == nil {
		c.state.Items = without(c.state.Items, itemID)
		if c.removedDuringLoad != nil {
			c.removedDuringLoad[itemID] = true
		}
	}
	c.publish()
	c.mu.Unlock()

	// Feedback is shown outside the controller lock so feedback observers
	// may read controller state.
	if err != nil {
		log.Printf("watch later: remove %s failed (%s): %v", itemID, client.KindOf(err), err)
		c.fb.Show(client.MessageOr(err, removeFallback(err)), feedback.Error)
		return err
	}
	c.fb.Show(MsgRemoved, feedback.Success)
	return nil
}

// Close cancels in-flight requests and stops all further publications.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.observers = make(map[int]func(State))
	c.mu.Unlock()
	c.cancel()
	c.fb.Close()
}

func (c *Controller) publish() {
	if c.closed {
		return
	}
	snap := c.state.clone()
	for _, fn := range c.observers {
		fn(snap)
	}
}

// list and remove turn a panicking collaborator into a transport failure.
func (c *Controller) list(ctx context.Context) (items []client.MediaItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &client.Error{Kind: client.KindTransport, Err: fmt.Errorf("catalog panic: %v", r)}
		}
	}()
	return c.catalog.ListSaved(ctx)
}

func (c *Controller) remove(ctx context.Context, itemID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &client.Error{Kind: client.KindTransport, Err: fmt.Errorf("catalog panic: %v", r)}
		}
	}()
	return c.catalog.RemoveSaved(ctx, itemID)
}

func fetchFallback(err error) string {
	if client.KindOf(err) == client.KindSoft {
		return MsgFetchFailed
	}
	return MsgFetchError
}

func removeFallback(err error) string {
	if client.KindOf(err) == client.KindSoft {
		return MsgRemoveFailed
	}
	return MsgRemoveError
}
