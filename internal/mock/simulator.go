package mock

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/makavanaraju78/Streamverse/internal/catalog"
	"github.com/makavanaraju78/Streamverse/internal/ws"
)

// Origin marks change events produced by the simulator.
const Origin = "simulator"

// Notifier receives a change after it has been persisted.
type Notifier interface {
	NotifyChange(email string, p ws.WatchLaterChangedPayload)
}

// Simulator plays a second device for one viewer: every tick it saves or
// un-saves a catalog title so connected clients see remote changes arrive.
type Simulator struct {
	store    *catalog.Store
	notifier Notifier
	email    string
	interval time.Duration
	rng      *rand.Rand
	done     chan struct{}
}

func NewSimulator(store *catalog.Store, notifier Notifier, email string, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &Simulator{
		store:    store,
		notifier: notifier,
		email:    email,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		done:     make(chan struct{}),
	}
}

func (s *Simulator) Start(ctx context.Context) {
	log.Printf("Mock simulator toggling %s every %s", s.email, s.interval)
	go s.run(ctx)
}

// Done is closed once the simulator has stopped after ctx was cancelled.
func (s *Simulator) Done() <-chan struct{} {
	return s.done
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Step(); err != nil {
				log.Printf("mock step: %v", err)
			}
		}
	}
}

// Step toggles one random title and returns the change it made. It returns
// the zero payload when the catalog is empty.
func (s *Simulator) Step() (ws.WatchLaterChangedPayload, error) {
	media := s.store.Media()
	if len(media) == 0 {
		return ws.WatchLaterChangedPayload{}, nil
	}
	m := media[s.rng.Intn(len(media))]

	added, err := s.store.Toggle(s.email, m.ID)
	if err != nil {
		return ws.WatchLaterChangedPayload{}, err
	}
	p := ws.WatchLaterChangedPayload{ItemID: m.ID, Action: ws.ActionRemoved, Origin: Origin}
	if added {
		p.Action = ws.ActionAdded
	}

	s.notifier.NotifyChange(s.email, p)
	return p, nil
}
