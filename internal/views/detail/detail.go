// Package detail renders the title info overlay: metadata plus the full
// plot rendered as markdown in a scrollable pane.
package detail

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/theme"
)

const (
	panelWidth = 68
	bodyHeight = 12
	labelWidth = 10
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)
)

// Model holds the state for the detail overlay.
type Model struct {
	Item client.MediaItem
	body viewport.Model
}

// New creates a detail model for item.
func New(item client.MediaItem) Model {
	vp := viewport.New(panelWidth-4, bodyHeight)
	vp.SetContent(renderPlot(item.Plot, panelWidth-4))
	return Model{Item: item, body: vp}
}

// Update forwards scroll keys to the plot pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	it := m.Item

	b.WriteString(theme.StyleTitle.Render(it.Title) + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	writeRow(&b, "Year", yearString(it.Year))
	writeRow(&b, "Type", lipgloss.NewStyle().Foreground(theme.TypeColor(it.Type)).Render(it.Type))
	if len(it.Genres) > 0 {
		writeRow(&b, "Genres", strings.Join(it.Genres, ", "))
	}
	if it.PosterRef != "" {
		writeRow(&b, "Poster", it.PosterRef)
	}
	b.WriteString("\n")
	b.WriteString(m.body.View() + "\n")

	scroll := ""
	if !m.body.AtBottom() {
		scroll = fmt.Sprintf("  %3.0f%%", m.body.ScrollPercent()*100)
	}
	b.WriteString(styleFooter.Render("j/k:scroll  p:play  esc:close" + scroll))

	return stylePanel.Width(panelWidth).Render(b.String())
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label) + value + "\n")
}

func yearString(y int) string {
	if y == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", y)
}

// renderPlot renders markdown, falling back to the raw text when glamour
// cannot build a renderer.
func renderPlot(plot string, width int) string {
	if strings.TrimSpace(plot) == "" {
		return theme.StyleDimmed.Render("No synopsis available.")
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Printf("detail: glamour renderer: %v", err)
		return plot
	}
	out, err := r.Render(plot)
	if err != nil {
		log.Printf("detail: rendering plot: %v", err)
		return plot
	}
	return strings.TrimRight(out, "\n")
}
