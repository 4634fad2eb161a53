package watchlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/feedback"
	"github.com/makavanaraju78/Streamverse/internal/session"
)

// fakeCatalog is a scriptable Catalog. A non-nil gate makes ListSaved block
// until the test sends on it.
type fakeCatalog struct {
	mu          sync.Mutex
	items       []client.MediaItem
	listErr     error
	removeErr   error
	listPanic   bool
	listCalls   int
	removeCalls int
	gate        chan struct{}
	entered     chan struct{}
}

func (f *fakeCatalog) ListSaved(ctx context.Context) ([]client.MediaItem, error) {
	f.mu.Lock()
	f.listCalls++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &client.Error{Kind: client.KindTransport, Err: ctx.Err()}
		}
	}
	if f.listPanic {
		panic("boom")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]client.MediaItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeCatalog) RemoveSaved(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	f.items = without(f.items, id)
	return nil
}

func (f *fakeCatalog) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.removeCalls
}

// manualTimers never fires on its own, keeping feedback visible for assertions.
func manualTimers(time.Duration, func()) func() bool { return func() bool { return true } }

func newController(cat *fakeCatalog) *Controller {
	return New(cat, feedback.NewWithAfterFunc(0, manualTimers))
}

func authed() session.Session {
	return session.FromLogin(client.LoginResult{Token: "t"}, "viewer@example.com")
}

func sampleItems() []client.MediaItem {
	return []client.MediaItem{
		{ID: "a", Title: "X", Year: 2020, Type: "movie", Genres: []string{"Drama"}},
		{ID: "b", Title: "Y", Year: 2019, Type: "series"},
		{ID: "c", Title: "Z", Year: 2018, Type: "movie"},
	}
}

func ids(items []client.MediaItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadSuccessKeepsServerOrder(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)

	started, err := c.Load(context.Background())
	if !started || err != nil {
		t.Fatalf("Load() = %v, %v", started, err)
	}
	st := c.State()
	if !equalIDs(ids(st.Items), []string{"a", "b", "c"}) {
		t.Errorf("items = %v", ids(st.Items))
	}
	if st.Loading {
		t.Error("Loading should be cleared")
	}
	if st.Err != "" || !st.Loaded {
		t.Errorf("state = %+v", st)
	}
}

func TestLoadDeduplicates(t *testing.T) {
	items := append(sampleItems(), client.MediaItem{ID: "a", Title: "dup"})
	c := newController(&fakeCatalog{items: items})
	c.Load(context.Background())

	st := c.State()
	if !equalIDs(ids(st.Items), []string{"a", "b", "c"}) {
		t.Errorf("items = %v", ids(st.Items))
	}
	if st.Items[0].Title != "X" {
		t.Error("first occurrence should win")
	}
}

func TestLoadingTrueForWholeCall(t *testing.T) {
	cat := &fakeCatalog{
		items:   sampleItems(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := newController(cat)

	var mu sync.Mutex
	var loadingSeen []bool
	c.Subscribe(func(s State) {
		mu.Lock()
		loadingSeen = append(loadingSeen, s.Loading)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		c.Load(context.Background())
		close(done)
	}()

	<-cat.entered
	if !c.State().Loading {
		t.Error("Loading should be true while the request is in flight")
	}
	close(cat.gate)
	<-done

	if c.State().Loading {
		t.Error("Loading should be false after Load returns")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(loadingSeen) != 2 || !loadingSeen[0] || loadingSeen[1] {
		t.Errorf("published loading sequence = %v, want [true false]", loadingSeen)
	}
}

func TestLoadSoftFailure(t *testing.T) {
	cat := &fakeCatalog{listErr: &client.Error{Kind: client.KindSoft, Message: "Server busy"}}
	c := newController(cat)

	started, err := c.Load(context.Background())
	if !started || client.KindOf(err) != client.KindSoft {
		t.Fatalf("Load() = %v, %v", started, err)
	}
	st := c.State()
	if st.Err != "Server busy" {
		t.Errorf("Err = %q, want %q", st.Err, "Server busy")
	}
	if len(st.Items) != 0 || st.Loading {
		t.Errorf("state = %+v", st)
	}
}

func TestLoadFailureFallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"soft without message", &client.Error{Kind: client.KindSoft}, MsgFetchFailed},
		{"transport", &client.Error{Kind: client.KindTransport, Err: errors.New("refused")}, MsgFetchError},
		{"foreign error", errors.New("weird"), MsgFetchError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(&fakeCatalog{listErr: tt.err})
			c.Load(context.Background())
			if got := c.State().Err; got != tt.want {
				t.Errorf("Err = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFailureKeepsPreviousItems(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)
	c.Load(context.Background())

	cat.mu.Lock()
	cat.listErr = &client.Error{Kind: client.KindTransport, Err: errors.New("down")}
	cat.mu.Unlock()
	c.Load(context.Background())

	st := c.State()
	if len(st.Items) != 3 {
		t.Errorf("items should be unchanged after a failed reload, got %v", ids(st.Items))
	}
	if st.Err != MsgFetchError {
		t.Errorf("Err = %q", st.Err)
	}
}

func TestLoadPanicClearsLoading(t *testing.T) {
	c := newController(&fakeCatalog{listPanic: true})
	started, err := c.Load(context.Background())
	if !started || client.KindOf(err) != client.KindTransport {
		t.Fatalf("Load() = %v, %v", started, err)
	}
	st := c.State()
	if st.Loading {
		t.Error("Loading should be cleared after a panic")
	}
	if st.Err != MsgFetchError {
		t.Errorf("Err = %q", st.Err)
	}
}

func TestLoadReentrancyGuard(t *testing.T) {
	cat := &fakeCatalog{
		items:   sampleItems(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := newController(cat)

	done := make(chan struct{})
	go func() {
		c.Load(context.Background())
		close(done)
	}()
	<-cat.entered

	started, err := c.Load(context.Background())
	if started || err != nil {
		t.Errorf("second Load() = %v, %v; want no-op", started, err)
	}
	close(cat.gate)
	<-done

	if lists, _ := cat.calls(); lists != 1 {
		t.Errorf("ListSaved called %d times, want 1", lists)
	}
}

func TestRemoveDuringLoadIsNotResurrected(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)
	c.Load(context.Background())

	// The reload response still contains "a": it was computed before the
	// removal reached the server.
	stale := sampleItems()
	cat.mu.Lock()
	cat.gate = make(chan struct{})
	cat.entered = make(chan struct{}, 1)
	cat.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.Load(context.Background())
		close(done)
	}()
	<-cat.entered

	if err := c.Remove(context.Background(), "a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	cat.mu.Lock()
	cat.items = stale
	cat.mu.Unlock()
	close(cat.gate)
	<-done

	if _, ok := c.State().Find("a"); ok {
		t.Error("in-flight load resurrected a removed item")
	}
}

func TestRemoveSuccess(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)
	c.Load(context.Background())

	for _, id := range []string{"b", "a", "c"} {
		before := ids(c.State().Items)
		if err := c.Remove(context.Background(), id); err != nil {
			t.Fatalf("Remove(%q) error: %v", id, err)
		}
		var want []string
		for _, x := range before {
			if x != id {
				want = append(want, x)
			}
		}
		if got := ids(c.State().Items); !equalIDs(got, want) {
			t.Errorf("after Remove(%q): items = %v, want %v", id, got, want)
		}
	}

	fb := c.Feedback().Current()
	if !fb.Visible || fb.Severity != feedback.Success || fb.Message != MsgRemoved {
		t.Errorf("feedback = %+v", fb)
	}
	if lists, _ := cat.calls(); lists != 1 {
		t.Errorf("Remove should not re-fetch; ListSaved calls = %d", lists)
	}
}

func TestRemoveAppliesOnlyAfterConfirmation(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)
	c.Load(context.Background())

	var sawPendingWithItem bool
	c.Subscribe(func(s State) {
		if s.Pending["a"] {
			_, sawPendingWithItem = s.Find("a")
		}
	})
	c.Remove(context.Background(), "a")
	if !sawPendingWithItem {
		t.Error("item should remain listed while its removal is pending")
	}
}

func TestRemoveFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"soft with message", &client.Error{Kind: client.KindSoft, Message: "Not allowed"}, "Not allowed"},
		{"soft without message", &client.Error{Kind: client.KindSoft}, MsgRemoveFailed},
		{"transport", &client.Error{Kind: client.KindTransport, Err: errors.New("reset")}, MsgRemoveError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &fakeCatalog{items: sampleItems()}
			c := newController(cat)
			c.Load(context.Background())

			cat.removeErr = tt.err
			if err := c.Remove(context.Background(), "a"); err == nil {
				t.Fatal("expected an error")
			}
			if got := ids(c.State().Items); !equalIDs(got, []string{"a", "b", "c"}) {
				t.Errorf("items changed on failure: %v", got)
			}
			fb := c.Feedback().Current()
			if fb.Severity != feedback.Error || fb.Message != tt.want {
				t.Errorf("feedback = %+v, want error %q", fb, tt.want)
			}
			if len(c.State().Pending) != 0 {
				t.Error("pending should be cleared")
			}
		})
	}
}

func TestRemoveUnknownItem(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)
	c.Load(context.Background())

	if err := c.Remove(context.Background(), "zzz"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("err = %v, want ErrUnknownItem", err)
	}
	if _, removes := cat.calls(); removes != 0 {
		t.Errorf("RemoveSaved called %d times, want 0", removes)
	}
}

func TestEnterAnonymousNeverLoads(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)

	decision, err := c.Enter(context.Background(), session.Anonymous())
	if decision != session.Deny || err != nil {
		t.Fatalf("Enter() = %v, %v", decision, err)
	}
	if lists, removes := cat.calls(); lists != 0 || removes != 0 {
		t.Errorf("collaborator calls = %d/%d, want 0/0", lists, removes)
	}
	st := c.State()
	if !st.Denied || st.Err != session.DeniedMessage {
		t.Errorf("state = %+v", st)
	}
}

func TestEnterAuthenticatedLoads(t *testing.T) {
	cat := &fakeCatalog{items: sampleItems()}
	c := newController(cat)

	c.Enter(context.Background(), session.Anonymous())
	decision, err := c.Enter(context.Background(), authed())
	if decision != session.Allow || err != nil {
		t.Fatalf("Enter() = %v, %v", decision, err)
	}
	st := c.State()
	if st.Denied || st.Err != "" || len(st.Items) != 3 {
		t.Errorf("state = %+v", st)
	}
}

func TestCloseCancelsInFlightLoad(t *testing.T) {
	cat := &fakeCatalog{
		items:   sampleItems(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := newController(cat)

	published := 0
	c.Subscribe(func(State) { published++ })

	errc := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background())
		errc <- err
	}()
	<-cat.entered
	c.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return after Close")
	}
	if published != 1 {
		t.Errorf("published %d states, want only the loading=true one", published)
	}
	if _, err := c.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Load after Close = %v, want ErrClosed", err)
	}
}

func TestStateIsACopy(t *testing.T) {
	c := newController(&fakeCatalog{items: sampleItems()})
	c.Load(context.Background())
	st := c.State()
	st.Items[0].Title = "mutated"
	if c.State().Items[0].Title != "X" {
		t.Error("State() should return a copy")
	}
}

// Scenario: one item loads, its removal succeeds, one success feedback.
func TestScenarioLoadThenRemove(t *testing.T) {
	cat := &fakeCatalog{items: []client.MediaItem{
		{ID: "a", Title: "X", Year: 2020, Type: "movie", Genres: []string{"Drama"}},
	}}
	c := newController(cat)

	var shows []feedback.Feedback
	c.Feedback().Subscribe(func(fb feedback.Feedback) {
		if fb.Visible {
			shows = append(shows, fb)
		}
	})

	c.Enter(context.Background(), authed())
	st := c.State()
	if len(st.Items) != 1 || st.Items[0].Title != "X" {
		t.Fatalf("items = %+v", st.Items)
	}

	if err := c.Remove(context.Background(), "a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if n := c.State().Len(); n != 0 {
		t.Errorf("items = %d, want 0", n)
	}
	if len(shows) != 1 || shows[0].Message != "Removed from Watch Later" || shows[0].Severity != feedback.Success {
		t.Errorf("feedback shown = %+v", shows)
	}
}

// Scenario: transport failure on remove leaves items and shows the generic error.
func TestScenarioRemoveTransportError(t *testing.T) {
	cat := &fakeCatalog{items: []client.MediaItem{{ID: "a", Title: "X"}}}
	c := newController(cat)
	c.Enter(context.Background(), authed())

	cat.removeErr = &client.Error{Kind: client.KindTransport, Err: errors.New("connection reset")}
	c.Remove(context.Background(), "a")

	if c.State().Len() != 1 {
		t.Error("items should be unchanged")
	}
	fb := c.Feedback().Current()
	if fb.Severity != feedback.Error || fb.Message != "An error occurred" {
		t.Errorf("feedback = %+v", fb)
	}
}
