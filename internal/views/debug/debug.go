// Package debug renders the in-app activity log: requests, socket events
// and feedback messages, newest last.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/theme"
)

const maxEntries = 200

// Kinds of log entries.
const (
	KindWS    = "ws"
	KindHTTP  = "http"
	KindAuth  = "auth"
	KindToast = "toast"
	KindErr   = "err"
)

type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model is a bounded log with an optional kind filter.
type Model struct {
	Entries []Entry
	Offset  int // lines scrolled up from the bottom
	Filter  string

	now func() time.Time
}

func New() Model {
	return Model{now: time.Now}
}

// Add appends an entry, dropping the oldest beyond maxEntries, and snaps
// the view back to the bottom.
func (m *Model) Add(kind, message string) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.Entries = append(m.Entries, Entry{Time: now(), Kind: kind, Message: message})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// Addf is Add with formatting.
func (m *Model) Addf(kind, format string, args ...interface{}) {
	m.Add(kind, fmt.Sprintf(format, args...))
}

// CycleFilter steps through all kinds and back to no filter.
func (m *Model) CycleFilter() {
	order := []string{"", KindWS, KindHTTP, KindAuth, KindToast, KindErr}
	for i, k := range order {
		if k == m.Filter {
			m.Filter = order[(i+1)%len(order)]
			break
		}
	}
	m.Offset = 0
}

// Visible returns the entries that pass the filter.
func (m Model) Visible() []Entry {
	if m.Filter == "" {
		return m.Entries
	}
	var out []Entry
	for _, e := range m.Entries {
		if e.Kind == m.Filter {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) ScrollUp(n int) {
	m.Offset += n
	limit := len(m.Visible()) - 1
	if limit < 0 {
		limit = 0
	}
	if m.Offset > limit {
		m.Offset = limit
	}
}

func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	rows := height - 6
	if rows < 3 {
		rows = 3
	}

	filter := "all"
	if m.Filter != "" {
		filter = m.Filter
	}
	entries := m.Visible()
	title := theme.StyleHeader.Render(" ACTIVITY LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  f:filter(%s)  esc:close  %d entries", filter, len(entries)))

	panel := lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)

	if len(entries) == 0 {
		body := theme.StyleDimmed.Render("  Nothing logged yet.")
		return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := len(entries) - m.Offset
	if end < 0 {
		end = 0
	}
	start := end - rows
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, end-start)
	for _, e := range entries[start:end] {
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(5).Render(e.Kind)
		msg := e.Message
		if max := innerW - 24; max > 3 && len(msg) > max {
			msg = msg[:max-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, kind, msg))
	}

	more := ""
	if m.Offset > 0 {
		more = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), more, help))
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case KindWS:
		return theme.ColorSeries
	case KindHTTP:
		return theme.ColorMovie
	case KindAuth:
		return theme.ColorAccent2
	case KindToast:
		return theme.ColorHealthy
	case KindErr:
		return theme.ColorDanger
	default:
		return theme.ColorDimmed
	}
}
