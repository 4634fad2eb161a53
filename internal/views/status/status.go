package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Email     string
	Saved     int
	Loading   bool
	Width     int
}

func New() Model {
	return Model{}
}

func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var conn string
	switch {
	case m.Email == "":
		conn = theme.StyleDimmed.Render("○ Signed out")
	case m.Connected:
		conn = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Live")
	default:
		conn = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("○ Connecting...")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := conn
	if m.Email != "" {
		content += sep + m.Email
		saved := fmt.Sprintf("%d saved", m.Saved)
		if m.Saved == 1 {
			saved = "1 saved"
		}
		if m.Loading {
			saved += " (refreshing)"
		}
		content += sep + saved
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
