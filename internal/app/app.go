package app

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/feedback"
	"github.com/makavanaraju78/Streamverse/internal/session"
	"github.com/makavanaraju78/Streamverse/internal/theme"
	"github.com/makavanaraju78/Streamverse/internal/views/browse"
	"github.com/makavanaraju78/Streamverse/internal/views/debug"
	"github.com/makavanaraju78/Streamverse/internal/views/detail"
	"github.com/makavanaraju78/Streamverse/internal/views/login"
	"github.com/makavanaraju78/Streamverse/internal/views/status"
	"github.com/makavanaraju78/Streamverse/internal/views/toast"
	"github.com/makavanaraju78/Streamverse/internal/views/watchlater"
	"github.com/makavanaraju78/Streamverse/internal/watchlist"
)

// Screen identifies the page in the main area.
type Screen int

const (
	ScreenWatchLater Screen = iota
	ScreenLogin
	ScreenBrowse
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayDebug
)

// Options configures the root model.
type Options struct {
	HTTP            *client.HTTPClient
	WSURL           string
	FeedbackTimeout time.Duration
	// Session is the starting session, normally session.Anonymous().
	Session session.Session
}

// Model is the root Bubble Tea model. It owns the session value; views only
// read it, and only authentication results replace it.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	http    *client.HTTPClient
	authed  *client.HTTPClient
	ws      *client.WSClient
	wsCtx   context.Context
	wsStop  context.CancelFunc
	wsURL   string
	fbAfter time.Duration

	sess session.Session
	keys KeyMap

	width  int
	height int

	screen  Screen
	overlay Overlay

	login     login.Model
	watch     watchlater.Model
	browse    browse.Model
	detail    detail.Model
	debug     debug.Model
	statusBar status.Model

	connected bool
}

func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		ctx:       ctx,
		cancel:    cancel,
		http:      opts.HTTP,
		wsURL:     opts.WSURL,
		fbAfter:   opts.FeedbackTimeout,
		sess:      opts.Session,
		keys:      DefaultKeyMap(),
		login:     login.New(ctx, opts.HTTP),
		debug:     debug.New(),
		statusBar: status.New(),
	}
	m.authed = opts.HTTP.WithToken(opts.Session.Token)
	if opts.Session.Authenticated {
		m.statusBar.Email = opts.Session.Email
		m.dialFeed(opts.Session.Token)
	}
	m.watch = m.newWatch()
	m.browse = browse.New(ctx, m.authed)
	return m
}

// newWatch builds a controller bound to the current credentials.
func (m Model) newWatch() watchlater.Model {
	ctrl := watchlist.New(m.authed, feedback.New(m.fbAfter))
	w := watchlater.New(m.ctx, ctrl, m.http.ClientID())
	w.Width, w.Height = m.width, m.bodyHeight()
	return w
}

// Session returns the current session value.
func (m Model) Session() session.Session { return m.sess }

// Screen returns the active page.
func (m Model) Screen() Screen { return m.screen }

// Init shows the watch-later page, which runs the session gate.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.watch.Init(), m.watch.Enter(m.sess)}
	if m.sess.Authenticated {
		cmds = append(cmds, m.listen())
	}
	return tea.Batch(cmds...)
}

// dialFeed replaces the change-feed client. Messages still in flight from
// the old client see a cancelled context and resolve to nil.
func (m *Model) dialFeed(token string) {
	m.stopFeed()
	m.wsCtx, m.wsStop = context.WithCancel(m.ctx)
	m.ws = client.NewWSClient(m.wsURL, token)
}

func (m *Model) stopFeed() {
	if m.wsStop != nil {
		m.wsStop()
	}
	if m.ws != nil {
		m.ws.Close()
	}
}

func (m Model) listen() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.Listen(m.wsCtx)
}

func (m Model) readLoop() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.ReadLoop(m.wsCtx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.watch.Width = msg.Width
		m.watch.Height = m.bodyHeight()
		m.browse = m.browse.SetSize(msg.Width, m.bodyHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Observer traffic from the watch-later controller.
	case watchlater.StateMsg:
		var cmd tea.Cmd
		m.watch, cmd = m.watch.Update(msg)
		st := m.watch.State()
		m.statusBar.Saved = st.Len()
		m.statusBar.Loading = st.Loading
		return m, cmd

	case watchlater.FeedbackMsg:
		if msg.Feedback.Visible {
			m.debug.Addf(debug.KindToast, "%s: %s", msg.Feedback.Severity, msg.Feedback.Message)
		}
		var cmd tea.Cmd
		m.watch, cmd = m.watch.Update(msg)
		return m, cmd

	case toast.FrameMsg:
		var cmd tea.Cmd
		m.watch, cmd = m.watch.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var c1, c2 tea.Cmd
		m.watch, c1 = m.watch.Update(msg)
		m.login, c2 = m.login.Update(msg)
		return m, tea.Batch(c1, c2)

	// Watch-later outcomes and navigation.
	case watchlater.EnteredMsg:
		if msg.Decision == session.Deny {
			m.debug.Add(debug.KindAuth, "watch later denied: not signed in")
		} else {
			m.logResult("load", msg.Err)
		}
		return m, nil

	case watchlater.LoadedMsg:
		if msg.Started {
			m.logResult("load", msg.Err)
		}
		return m, nil

	case watchlater.RemovedMsg:
		m.logResult("remove "+msg.Item.ID, msg.Err)
		return m, nil

	case watchlater.GoToLoginMsg:
		notice := m.sess.Error
		m.sess = m.sess.ClearError()
		m.login = m.login.Reset(notice)
		m.screen = ScreenLogin
		m.debug.Add("nav", "login")
		return m, m.login.Init()

	case watchlater.BrowseMsg:
		m.screen = ScreenBrowse
		m.debug.Add("nav", "browse")
		var cmd tea.Cmd
		m.browse, cmd = m.browse.Open(m.watch.State().Items)
		return m, cmd

	case watchlater.DetailsMsg:
		m.detail = detail.New(msg.Item)
		m.overlay = OverlayDetail
		return m, nil

	case watchlater.PlayMsg:
		m.debug.Addf("nav", "play %s (%s)", msg.Item.Title, msg.Item.ID)
		return m, nil

	// Login.
	case login.SucceededMsg:
		m.login, _ = m.login.Update(msg)
		return m.startSession(msg.Session, msg.Message)

	case login.FailedMsg:
		m.login, _ = m.login.Update(msg)
		m.sess = m.sess.WithError(msg.Message)
		if msg.Err != nil {
			log.Printf("login failed: %v", msg.Err)
		}
		m.debug.Add(debug.KindAuth, msg.Message)
		m.watch.Feedback().Show(msg.Message, feedback.Error)
		return m, nil

	// Browse.
	case browse.LoadedMsg:
		m.logResult("browse", msg.Err)
		var cmd tea.Cmd
		m.browse, cmd = m.browse.Update(msg)
		return m, cmd

	case browse.AddedMsg:
		m.logResult("add "+msg.Item.ID, msg.Err)
		sev := feedback.Success
		if msg.Err != nil {
			sev = feedback.Error
		}
		m.watch.Feedback().Show(browse.AddOutcome(msg), sev)
		var cmd tea.Cmd
		m.browse, cmd = m.browse.Update(msg)
		if msg.Err == nil {
			return m, tea.Batch(cmd, m.watch.Reload())
		}
		return m, cmd

	case browse.CloseMsg:
		m.screen = ScreenWatchLater
		return m, nil

	// Change feed.
	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		m.debug.Addf(debug.KindWS, "connected as %s", msg.Email)
		if msg.Reconnect {
			// Changes made while offline were never pushed.
			return m, tea.Batch(m.readLoop(), m.watch.Reload())
		}
		return m, m.readLoop()

	case client.WSRejectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		log.Printf("change feed: %v", msg.Err)
		m.debug.Add(debug.KindErr, "live updates unavailable: session rejected")
		return m, nil

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.debug.Addf(debug.KindWS, "disconnected: %v", msg.Err)
		}
		return m, m.listen()

	case client.WSChangedMsg:
		p := msg.Payload
		m.debug.Addf(debug.KindWS, "%s %s (origin %q)", p.Action, p.ItemID, p.Origin)
		return m, tea.Batch(m.watch.HandleChange(p), m.readLoop())

	case client.WSErrorMsg:
		m.debug.Addf(debug.KindErr, "server: %s", string(msg.Raw))
		return m, m.readLoop()
	}

	return m, nil
}

// startSession replaces the session and rebuilds everything bound to the
// old credentials.
func (m Model) startSession(s session.Session, message string) (tea.Model, tea.Cmd) {
	m.sess = s
	m.debug.Addf(debug.KindAuth, "signed in as %s", s.Email)

	m.watch.Close()
	m.authed = m.http.WithToken(s.Token)
	m.dialFeed(s.Token)
	m.watch = m.newWatch()
	m.browse = browse.New(m.ctx, m.authed).SetSize(m.width, m.bodyHeight())
	m.statusBar.Email = s.Email
	m.screen = ScreenWatchLater
	m.overlay = OverlayNone

	m.watch.Feedback().Show(message, feedback.Success)
	return m, tea.Batch(m.watch.Init(), m.watch.Enter(m.sess), m.listen())
}

func (m *Model) logResult(op string, err error) {
	if err == nil {
		m.debug.Add(debug.KindHTTP, op+": ok")
		return
	}
	if client.IsCanceled(err) {
		return
	}
	log.Printf("%s failed (%s): %v", op, client.KindOf(err), err)
	m.debug.Addf(debug.KindErr, "%s: %v", op, err)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}
	if key.Matches(msg, m.keys.Debug) {
		if m.overlay == OverlayDebug {
			m.overlay = OverlayNone
		} else {
			m.overlay = OverlayDebug
		}
		return m, nil
	}

	switch m.overlay {
	case OverlayDetail:
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
			return m, nil
		case key.Matches(msg, m.keys.Play):
			item := m.detail.Item
			return m, func() tea.Msg { return watchlater.PlayMsg{Item: item} }
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		case key.Matches(msg, m.keys.Filter):
			m.debug.CycleFilter()
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.screen {
	case ScreenLogin:
		if key.Matches(msg, m.keys.Escape) && !m.login.Submitting() {
			m.screen = ScreenWatchLater
			return m, nil
		}
		m.login, cmd = m.login.Update(msg)
	case ScreenBrowse:
		m.browse, cmd = m.browse.Update(msg)
	default:
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
		m.watch, cmd = m.watch.Update(msg)
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.watch.Close()
	m.stopFeed()
	m.cancel()
	return m, tea.Quit
}

func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 0 {
		return 0
	}
	return h
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayDetail:
		body = m.detail.View()
	case OverlayDebug:
		body = m.debug.View(m.width, m.bodyHeight())
	default:
		body = m.screenView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		body,
		theme.StyleDimmed.Render("  "+m.help()),
	)
}

func (m Model) screenView() string {
	switch m.screen {
	case ScreenLogin:
		return m.withToast(m.login.View())
	case ScreenBrowse:
		return m.withToast(m.browse.View())
	default:
		return m.watch.View()
	}
}

// withToast appends the feedback toast to pages that do not draw it.
func (m Model) withToast(body string) string {
	if t := m.watch.Toast().View(); t != "" {
		return lipgloss.JoinVertical(lipgloss.Left, body, t)
	}
	return body
}

func (m Model) help() string {
	switch {
	case m.overlay != OverlayNone:
		return "esc:close  ctrl+d:activity log  ctrl+c:quit"
	case m.screen == ScreenLogin:
		return "esc:back  ctrl+d:activity log  ctrl+c:quit"
	case m.screen == ScreenBrowse:
		return "esc:back  ctrl+d:activity log  ctrl+c:quit"
	default:
		return "q:quit  ctrl+d:activity log"
	}
}
