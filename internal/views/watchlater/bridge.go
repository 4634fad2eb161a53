package watchlater

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/makavanaraju78/Streamverse/internal/feedback"
	"github.com/makavanaraju78/Streamverse/internal/watchlist"
)

// StateMsg delivers a controller publication to the Bubble Tea loop.
type StateMsg struct {
	State watchlist.State
	src   *bridge
}

// FeedbackMsg delivers a feedback channel transition.
type FeedbackMsg struct {
	Feedback feedback.Feedback
	src      *bridge
}

// bridge turns observer callbacks into messages. Each mailbox holds only the
// newest value: observers run under their source's lock and must not block,
// and an intermediate state the renderer never saw is safe to drop.
type bridge struct {
	states    chan watchlist.State
	feedbacks chan feedback.Feedback
	cancels   []func()
}

func newBridge(ctrl *watchlist.Controller, fb *feedback.Channel) *bridge {
	b := &bridge{
		states:    make(chan watchlist.State, 1),
		feedbacks: make(chan feedback.Feedback, 1),
	}
	b.cancels = append(b.cancels,
		ctrl.Subscribe(func(s watchlist.State) { offer(b.states, s) }),
		fb.Subscribe(func(f feedback.Feedback) { offer(b.feedbacks, f) }),
	)
	return b
}

func (b *bridge) close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}

// waitState blocks until the next publication. Like a socket read loop it
// must be re-issued after every StateMsg.
func (b *bridge) waitState(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-b.states:
			return StateMsg{State: s, src: b}
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *bridge) waitFeedback(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case f := <-b.feedbacks:
			return FeedbackMsg{Feedback: f, src: b}
		case <-ctx.Done():
			return nil
		}
	}
}

// offer replaces whatever is buffered with v. Publications are serialized by
// the source's lock, so there is a single writer per mailbox.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
