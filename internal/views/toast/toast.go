// Package toast renders the feedback channel as a spring-animated banner.
package toast

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/harmonica"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/feedback"
	"github.com/makavanaraju78/Streamverse/internal/theme"
)

const (
	fps       = 60
	frequency = 7.0
	damping   = 0.7
	settle    = 0.01
)

var lastID atomic.Int64

// FrameMsg advances the reveal animation by one frame. ID names the toast
// whose animation scheduled it; other toasts ignore it.
type FrameMsg struct {
	ID int
}

// Model mirrors the latest Feedback and animates its reveal from 0 to 1.
// A hidden toast keeps its last message so it can collapse visibly.
type Model struct {
	id        int
	current   feedback.Feedback
	message   string
	severity  feedback.Severity
	spring    harmonica.Spring
	pos, vel  float64
	animating bool
}

func New() Model {
	return Model{
		id:     int(lastID.Add(1)),
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
	}
}

// Visible reports whether the channel currently shows feedback.
func (m Model) Visible() bool {
	return m.current.Visible
}

// ID identifies this toast's frame messages.
func (m Model) ID() int {
	return m.id
}

// Current returns the last feedback state applied with Set.
func (m Model) Current() feedback.Feedback {
	return m.current
}

// Set applies a new feedback state. A replacement (new Seq) restarts the
// reveal from zero.
func (m Model) Set(f feedback.Feedback) (Model, tea.Cmd) {
	if f.Visible {
		if f.Seq != m.current.Seq {
			m.pos, m.vel = 0, 0
		}
		m.message = f.Message
		m.severity = f.Severity
	}
	m.current = f

	if m.animating {
		return m, nil
	}
	m.animating = true
	return m, frame(m.id)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	f, ok := msg.(FrameMsg)
	if !ok || f.ID != m.id || !m.animating {
		return m, nil
	}

	target := m.target()
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, target)
	if math.Abs(m.pos-target) < settle && math.Abs(m.vel) < settle {
		m.pos, m.vel = target, 0
		m.animating = false
		return m, nil
	}
	return m, frame(m.id)
}

func (m Model) target() float64 {
	if m.current.Visible {
		return 1
	}
	return 0
}

func (m Model) View() string {
	reveal := math.Max(0, math.Min(1, m.pos))
	if reveal < settle || m.message == "" {
		return ""
	}

	text := []rune(theme.SeverityGlyph(string(m.severity)) + " " + m.message)
	n := int(math.Round(reveal * float64(len(text))))
	if n == 0 {
		return ""
	}

	color := theme.SeverityColor(string(m.severity))
	return lipgloss.NewStyle().
		Foreground(color).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(string(text[:n]))
}

func frame(id int) tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg {
		return FrameMsg{ID: id}
	})
}
