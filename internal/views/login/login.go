// Package login is the sign-in form: email/password with inline validation,
// or an identity token issued by a federated provider.
package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/session"
	"github.com/makavanaraju78/Streamverse/internal/theme"
)

// Outcome messages, shown on the feedback channel.
const (
	MsgLoginOK          = "Login Successful"
	MsgFederatedOK      = "Google Login Successful"
	MsgInvalid          = "Invalid credentials"
	MsgLoginUnavailable = "Login Failed, Please Try After Sometime"
	MsgFederatedFailed  = "Google Login Failed"
)

// MsgTokenRequired is the inline error for an empty identity token.
const MsgTokenRequired = "Identity token is required"

// Authenticator is the slice of the auth service the form needs.
type Authenticator interface {
	Login(ctx context.Context, creds client.Credentials) (client.LoginResult, error)
	LoginWithFederatedToken(ctx context.Context, idToken string) (client.LoginResult, error)
}

// SucceededMsg carries the session that replaces the anonymous one.
type SucceededMsg struct {
	Session session.Session
	Message string
}

// FailedMsg reports a rejected or failed login attempt.
type FailedMsg struct {
	Message string
	Err     error
}

type Mode int

const (
	ModePassword Mode = iota
	ModeFederated
)

const (
	fieldEmail = iota
	fieldPassword
)

type keyMap struct {
	Next       key.Binding
	Prev       key.Binding
	Submit     key.Binding
	Reveal     key.Binding
	SwitchMode key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next:       key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:       key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign in")),
		Reveal:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "show/hide password")),
		SwitchMode: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "identity token")),
	}
}

type Model struct {
	auth Authenticator
	ctx  context.Context
	keys keyMap

	email    textinput.Model
	password textinput.Model
	token    textinput.Model
	focus    int
	mode     Mode

	revealed   bool
	errs       session.FieldErrors
	submitting bool
	spinner    spinner.Model

	// Notice is the last authentication error, shown above the form.
	Notice string
	Width  int
}

func New(ctx context.Context, auth Authenticator) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	token := textinput.New()
	token.Placeholder = "paste identity token"
	token.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)

	return Model{
		auth:     auth,
		ctx:      ctx,
		keys:     defaultKeys(),
		email:    email,
		password: password,
		token:    token,
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Reset prepares the form for a fresh visit. Typed email is kept.
func (m Model) Reset(notice string) Model {
	m.errs = nil
	m.submitting = false
	m.Notice = notice
	m.password.SetValue("")
	m.token.SetValue("")
	m = m.setMode(ModePassword)
	return m
}

func (m Model) Mode() Mode { return m.mode }
func (m Model) Submitting() bool { return m.submitting }
func (m Model) Revealed() bool { return m.revealed }
func (m Model) Errors() session.FieldErrors { return m.errs }

// SetFields fills the form programmatically.
func (m Model) SetFields(email, password string) Model {
	m.email.SetValue(email)
	m.password.SetValue(password)
	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SucceededMsg:
		m.submitting = false
		m.Notice = ""
		return m, nil

	case FailedMsg:
		m.submitting = false
		m.Notice = msg.Message
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.SwitchMode):
			if m.mode == ModePassword {
				return m.setMode(ModeFederated), textinput.Blink
			}
			return m.setMode(ModePassword), textinput.Blink
		case key.Matches(msg, m.keys.Reveal):
			m.revealed = !m.revealed
			if m.revealed {
				m.password.EchoMode = textinput.EchoNormal
			} else {
				m.password.EchoMode = textinput.EchoPassword
			}
			return m, nil
		case m.mode == ModePassword && key.Matches(msg, m.keys.Next):
			return m.setFocus((m.focus + 1) % 2), nil
		case m.mode == ModePassword && key.Matches(msg, m.keys.Prev):
			return m.setFocus((m.focus + 1) % 2), nil
		}
	}

	var cmd tea.Cmd
	switch {
	case m.mode == ModeFederated:
		m.token, cmd = m.token.Update(msg)
	case m.focus == fieldEmail:
		m.email, cmd = m.email.Update(msg)
	default:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) setMode(mode Mode) Model {
	m.mode = mode
	m.errs = nil
	if mode == ModeFederated {
		m.email.Blur()
		m.password.Blur()
		m.token.Focus()
		return m
	}
	m.token.Blur()
	return m.setFocus(fieldEmail)
}

func (m Model) setFocus(field int) Model {
	m.focus = field
	if field == fieldEmail {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.password.Focus()
		m.email.Blur()
	}
	return m
}

// submit validates locally and only then starts the request. Validation
// failures stay inline and never reach the service.
func (m Model) submit() (Model, tea.Cmd) {
	if m.mode == ModeFederated {
		tok := strings.TrimSpace(m.token.Value())
		if tok == "" {
			m.errs = session.FieldErrors{"token": MsgTokenRequired}
			return m, nil
		}
		m.errs = nil
		m.submitting = true
		m.Notice = ""
		return m, tea.Batch(m.spinner.Tick, federatedCmd(m.ctx, m.auth, tok))
	}

	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	m.errs = session.ValidateCredentials(email, password)
	if !m.errs.OK() {
		if _, bad := m.errs["email"]; bad {
			m = m.setFocus(fieldEmail)
		} else {
			m = m.setFocus(fieldPassword)
		}
		return m, nil
	}

	m.submitting = true
	m.Notice = ""
	return m, tea.Batch(m.spinner.Tick, loginCmd(m.ctx, m.auth, email, password))
}

func loginCmd(ctx context.Context, auth Authenticator, email, password string) tea.Cmd {
	return func() tea.Msg {
		res, err := auth.Login(ctx, client.Credentials{Email: email, Password: password})
		if err != nil {
			if client.KindOf(err) == client.KindTransport {
				return FailedMsg{Message: MsgLoginUnavailable, Err: err}
			}
			return FailedMsg{Message: client.MessageOr(err, MsgInvalid), Err: err}
		}
		sess := session.FromLogin(res, email)
		if !sess.Authenticated {
			return FailedMsg{Message: MsgInvalid}
		}
		return SucceededMsg{Session: sess, Message: MsgLoginOK}
	}
}

func federatedCmd(ctx context.Context, auth Authenticator, token string) tea.Cmd {
	return func() tea.Msg {
		res, err := auth.LoginWithFederatedToken(ctx, token)
		if err != nil {
			return FailedMsg{Message: MsgFederatedFailed, Err: err}
		}
		sess := session.FromLogin(res, "")
		if !sess.Authenticated {
			return FailedMsg{Message: MsgFederatedFailed}
		}
		return SucceededMsg{Session: sess, Message: MsgFederatedOK}
	}
}

var (
	styleLabel   = lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	styleField   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(theme.ColorBorder).Padding(0, 1).Width(40)
	styleFocused = styleField.BorderForeground(theme.ColorAccent)
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.StyleTitle.Render("Sign in to Streamverse") + "\n\n")

	if m.Notice != "" {
		b.WriteString(theme.StyleError.Render(m.Notice) + "\n\n")
	}

	if m.mode == ModeFederated {
		b.WriteString(m.field("Identity token", m.token, true, m.errs["token"]))
	} else {
		b.WriteString(m.field("Email", m.email, m.focus == fieldEmail, m.errs["email"]))
		label := "Password"
		if m.revealed {
			label += " (visible)"
		}
		b.WriteString(m.field(label, m.password, m.focus == fieldPassword, m.errs["password"]))
	}

	if m.submitting {
		b.WriteString(m.spinner.View() + " Signing in...\n")
	} else {
		b.WriteString(theme.StyleButton.Render("Sign In") + "\n")
	}

	help := "enter:sign in  tab:next  ctrl+r:show password  ctrl+g:identity token  ctrl+c:quit"
	if m.mode == ModeFederated {
		help = "enter:sign in  ctrl+g:email & password  ctrl+c:quit"
	}
	b.WriteString("\n" + theme.StyleDimmed.Render(help))

	return theme.StyleBorder.Padding(1, 3).Render(b.String())
}

func (m Model) field(label string, in textinput.Model, focused bool, errMsg string) string {
	style := styleField
	if focused {
		style = styleFocused
	}
	out := styleLabel.Render(label) + "\n" + style.Render(in.View()) + "\n"
	if errMsg != "" {
		out += theme.StyleError.Render(errMsg) + "\n"
	}
	return out + "\n"
}
