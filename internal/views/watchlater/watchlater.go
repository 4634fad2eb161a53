// Package watchlater is the Bubble Tea rendering of a watchlist.Controller:
// the denial screen, loading and error states, the card list and the
// feedback toast.
package watchlater

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/feedback"
	"github.com/makavanaraju78/Streamverse/internal/session"
	"github.com/makavanaraju78/Streamverse/internal/theme"
	"github.com/makavanaraju78/Streamverse/internal/views/toast"
	"github.com/makavanaraju78/Streamverse/internal/watchlist"
)

const (
	plotPreview = 100
	maxGenres   = 3
	cardLines   = 6
)

// Screen text.
const (
	TextDenied     = "Please login to view your Watch Later list"
	TextGoToLogin  = "Go to Login"
	TextEmpty      = "Your Watch Later list is empty"
	TextEmptyHint  = "Add movies and shows to watch later"
	TextBrowse     = "Browse Movies"
	TextHeading    = "My Watch Later"
	TextLoadingMsg = "Loading your Watch Later list..."
)

// Messages produced by the view. The root model routes the navigation ones.
type (
	EnteredMsg struct {
		Decision session.Decision
		Err      error
	}
	LoadedMsg struct {
		Started bool
		Err     error
	}
	RemovedMsg struct {
		Item client.MediaItem
		Err  error
	}
	GoToLoginMsg struct{}
	BrowseMsg    struct{}
	DetailsMsg   struct{ Item client.MediaItem }
	PlayMsg      struct{ Item client.MediaItem }
)

type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Remove  key.Binding
	Details key.Binding
	Play    key.Binding
	Reload  key.Binding
	Browse  key.Binding
	Dismiss key.Binding
	Login   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "prev")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next")),
		Remove:  key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Details: key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "details")),
		Play:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Browse:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "browse")),
		Dismiss: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Login:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "go to login")),
	}
}

type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ctrl     *watchlist.Controller
	bridge   *bridge
	clientID string
	keys     KeyMap

	state    watchlist.State
	selected int
	toast    toast.Model
	spinner  spinner.Model
	spinning bool

	Width  int
	Height int
}

// New wraps ctrl. clientID is this process's identity on the change feed;
// events it caused itself are not reloaded.
func New(ctx context.Context, ctrl *watchlist.Controller, clientID string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)

	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		ctrl:     ctrl,
		bridge:   newBridge(ctrl, ctrl.Feedback()),
		clientID: clientID,
		keys:     DefaultKeyMap(),
		state:    ctrl.State(),
		toast:    toast.New(),
		spinner:  sp,
	}
}

// Init arms the state and feedback listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.waitState(m.ctx), m.bridge.waitFeedback(m.ctx))
}

// Close detaches from the controller and cancels its in-flight requests.
func (m Model) Close() {
	m.bridge.close()
	m.ctrl.Close()
	m.cancel()
}

// Feedback is the channel this screen's toast follows.
func (m Model) Feedback() *feedback.Channel { return m.ctrl.Feedback() }

func (m Model) State() watchlist.State { return m.state }
func (m Model) Selected() int { return m.selected }
func (m Model) Toast() toast.Model { return m.toast }

// Enter runs the session gate and, when allowed, the first load.
func (m Model) Enter(s session.Session) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		dec, err := ctrl.Enter(ctx, s)
		return EnteredMsg{Decision: dec, Err: err}
	}
}

// Reload asks the controller for a fresh list. Overlapping reloads are
// dropped by the controller.
func (m Model) Reload() tea.Cmd {
	if m.state.Denied {
		return nil
	}
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		started, err := ctrl.Load(ctx)
		return LoadedMsg{Started: started, Err: err}
	}
}

// HandleChange reacts to a server change event. Changes this process made
// are already reflected locally.
func (m Model) HandleChange(p client.WatchLaterChangedPayload) tea.Cmd {
	if p.Origin != "" && p.Origin == m.clientID {
		return nil
	}
	return m.Reload()
}

func (m Model) remove(item client.MediaItem) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return RemovedMsg{Item: item, Err: ctrl.Remove(ctx, item.ID)}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		if msg.src != m.bridge {
			return m, nil
		}
		m.state = msg.State
		m.clampSelection()
		cmds := []tea.Cmd{m.bridge.waitState(m.ctx)}
		if m.state.Loading && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case FeedbackMsg:
		if msg.src != m.bridge {
			return m, nil
		}
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Set(msg.Feedback)
		return m, tea.Batch(cmd, m.bridge.waitFeedback(m.ctx))

	case toast.FrameMsg:
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.state.Loading {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Dismiss) && m.toast.Visible() {
		m.ctrl.Feedback().Dismiss()
		return m, nil
	}

	if m.state.Denied {
		if key.Matches(msg, m.keys.Login) {
			return m, func() tea.Msg { return GoToLoginMsg{} }
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if n := m.state.Len(); n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case key.Matches(msg, m.keys.Up):
		if n := m.state.Len(); n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
	case key.Matches(msg, m.keys.Reload):
		return m, m.Reload()
	case key.Matches(msg, m.keys.Browse):
		return m, func() tea.Msg { return BrowseMsg{} }
	case key.Matches(msg, m.keys.Remove):
		if item, ok := m.current(); ok && !m.state.Pending[item.ID] {
			return m, m.remove(item)
		}
	case key.Matches(msg, m.keys.Details):
		if item, ok := m.current(); ok {
			return m, func() tea.Msg { return DetailsMsg{Item: item} }
		}
	case key.Matches(msg, m.keys.Play):
		if item, ok := m.current(); ok {
			return m, func() tea.Msg { return PlayMsg{Item: item} }
		}
	}
	return m, nil
}

func (m Model) current() (client.MediaItem, bool) {
	if m.selected < 0 || m.selected >= m.state.Len() {
		return client.MediaItem{}, false
	}
	return m.state.Items[m.selected], true
}

func (m *Model) clampSelection() {
	n := m.state.Len()
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

var (
	styleHeading = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderTop(false).BorderRight(false).BorderBottom(false).
			BorderForeground(theme.ColorAccent).
			PaddingLeft(1)

	styleAlert = lipgloss.NewStyle().
			Foreground(theme.ColorDanger).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.ColorDanger).
			Padding(0, 1)

	styleCentered = lipgloss.NewStyle().
			Align(lipgloss.Center).
			Padding(2, 0)
)

func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	if m.state.Denied {
		body := lipgloss.JoinVertical(lipgloss.Center,
			theme.StyleHeader.Render(TextDenied),
			"",
			theme.StyleButton.Render(TextGoToLogin),
			theme.StyleDimmed.Render("enter: go to login"),
		)
		return m.withToast(styleCentered.Width(width).Render(body))
	}

	var sections []string
	sections = append(sections, styleHeading.Render(TextHeading), theme.StyleDimmed.Render(strings.Repeat("─", width-2)))

	switch {
	case m.state.Loading && !m.state.Loaded:
		sections = append(sections, styleCentered.Width(width).Render(m.spinner.View()+" "+TextLoadingMsg))
	case m.state.Err != "" && m.state.Len() == 0:
		sections = append(sections, styleAlert.Render(m.state.Err))
	case m.state.Len() > 0:
		if m.state.Err != "" {
			sections = append(sections, styleAlert.Render(m.state.Err))
		}
		if m.state.Loading {
			sections = append(sections, m.spinner.View()+theme.StyleDimmed.Render(" refreshing"))
		}
		sections = append(sections, m.renderCards(width))
		sections = append(sections, theme.StyleDimmed.Render("j/k:move  enter:details  p:play  x:remove  r:reload  b:browse  esc:dismiss"))
	case m.state.Loaded:
		body := lipgloss.JoinVertical(lipgloss.Center,
			theme.StyleHeader.Render(TextEmpty),
			theme.StyleDimmed.Render(TextEmptyHint),
			"",
			theme.StyleButton.Render(TextBrowse),
			theme.StyleDimmed.Render("b: browse"),
		)
		sections = append(sections, styleCentered.Width(width).Render(body))
	}

	return m.withToast(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) withToast(body string) string {
	if t := m.toast.View(); t != "" {
		return lipgloss.JoinVertical(lipgloss.Left, body, t)
	}
	return body
}

// renderCards shows a window of cards that keeps the selection visible.
func (m Model) renderCards(width int) string {
	items := m.state.Items
	fit := len(items)
	if m.Height > 0 {
		fit = (m.Height - 10) / cardLines
		if fit < 1 {
			fit = 1
		}
	}
	start := 0
	if m.selected >= fit {
		start = m.selected - fit + 1
	}
	end := start + fit
	if end > len(items) {
		end = len(items)
	}

	cards := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		cards = append(cards, m.renderCard(items[i], i == m.selected, width-2))
	}
	if rest := len(items) - end; rest > 0 {
		cards = append(cards, theme.StyleDimmed.Render(fmt.Sprintf("  … %d more", rest)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m Model) renderCard(it client.MediaItem, selected bool, width int) string {
	style := theme.StyleCard
	if selected {
		style = theme.StyleCardSelected
	}

	title := theme.StyleHeader.Render(it.Title)
	if m.state.Pending[it.ID] {
		title += theme.StyleDimmed.Render("  removing...")
	}

	lines := []string{
		title,
		lipgloss.NewStyle().Foreground(theme.TypeColor(it.Type)).Render(Subtitle(it)),
	}
	if genres := Genres(it); len(genres) > 0 {
		chips := make([]string, len(genres))
		for i, g := range genres {
			chips[i] = theme.Badge(g, theme.ColorDimmed)
		}
		lines = append(lines, strings.Join(chips, " "))
	}
	lines = append(lines, theme.StyleDimmed.Render(PlotPreview(it.Plot)))

	return style.Width(width).Render(strings.Join(lines, "\n"))
}

// Subtitle is the "year • type" line of a card.
func Subtitle(it client.MediaItem) string {
	return fmt.Sprintf("%d • %s", it.Year, it.Type)
}

// Genres returns at most the first three genres.
func Genres(it client.MediaItem) []string {
	if len(it.Genres) > maxGenres {
		return it.Genres[:maxGenres]
	}
	return it.Genres
}

// PlotPreview is the first 100 characters of plot followed by "...".
func PlotPreview(plot string) string {
	r := []rune(plot)
	if len(r) > plotPreview {
		r = r[:plotPreview]
	}
	return string(r) + "..."
}
