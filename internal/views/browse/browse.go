// Package browse lists the full catalog so the viewer can add titles to
// their watch-later list.
package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/theme"
)

// Outcome messages for adding a title.
const (
	MsgAdded     = "Added to Watch Later"
	MsgAddFailed = "Failed to add to Watch Later"
	MsgAddError  = "An error occurred"
)

// Catalog is the slice of the catalog service browsing needs.
type Catalog interface {
	Browse(ctx context.Context) ([]client.MediaItem, error)
	AddSaved(ctx context.Context, itemID string) error
}

// LoadedMsg carries the catalog listing.
type LoadedMsg struct {
	Items []client.MediaItem
	Err   error
}

// AddedMsg reports the outcome of adding Item.
type AddedMsg struct {
	Item client.MediaItem
	Err  error
}

// CloseMsg asks the root model to leave the browse screen.
type CloseMsg struct{}

type entry struct {
	item  client.MediaItem
	saved bool
}

func (e entry) Title() string {
	if e.saved {
		return e.item.Title + "  ✓"
	}
	return e.item.Title
}

func (e entry) Description() string {
	desc := fmt.Sprintf("%d • %s", e.item.Year, e.item.Type)
	if len(e.item.Genres) > 0 {
		desc += "  " + strings.Join(e.item.Genres, ", ")
	}
	return desc
}

func (e entry) FilterValue() string {
	return strings.ToLower(e.item.Title + " " + strings.Join(e.item.Genres, " "))
}

type Model struct {
	ctx     context.Context
	catalog Catalog
	list    list.Model
	saved   map[string]bool
	loading bool
	adding  string
	err     string

	add   key.Binding
	close key.Binding
}

func New(ctx context.Context, catalog Catalog) Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Browse"
	l.Styles.Title = theme.StyleButton
	l.SetFilteringEnabled(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return Model{
		ctx:     ctx,
		catalog: catalog,
		list:    l,
		saved:   make(map[string]bool),
		add:     key.NewBinding(key.WithKeys("a", "enter"), key.WithHelp("a", "add")),
		close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// Open starts fetching the catalog. saved marks titles already on the list.
func (m Model) Open(saved []client.MediaItem) (Model, tea.Cmd) {
	m.saved = make(map[string]bool, len(saved))
	for _, it := range saved {
		m.saved[it.ID] = true
	}
	m.loading = true
	m.err = ""
	catalog, ctx := m.catalog, m.ctx
	return m, func() tea.Msg {
		items, err := catalog.Browse(ctx)
		return LoadedMsg{Items: items, Err: err}
	}
}

func (m Model) SetSize(width, height int) Model {
	m.list.SetSize(width, height-2)
	return m
}

// Items returns the titles currently listed.
func (m Model) Items() []client.MediaItem {
	out := make([]client.MediaItem, 0, len(m.list.Items()))
	for _, li := range m.list.Items() {
		out = append(out, li.(entry).item)
	}
	return out
}

func (m Model) Loading() bool { return m.loading }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = client.MessageOr(msg.Err, "Failed to load the catalog")
			return m, nil
		}
		return m, m.list.SetItems(m.entries(msg.Items))

	case AddedMsg:
		m.adding = ""
		if msg.Err == nil {
			m.saved[msg.Item.ID] = true
			return m, m.list.SetItems(m.entries(m.Items()))
		}
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.close):
			if m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
				return m, nil
			}
			return m, func() tea.Msg { return CloseMsg{} }
		case key.Matches(msg, m.add):
			sel, ok := m.list.SelectedItem().(entry)
			if !ok || sel.saved || m.adding != "" {
				return m, nil
			}
			m.adding = sel.item.ID
			catalog, ctx, item := m.catalog, m.ctx, sel.item
			return m, func() tea.Msg {
				return AddedMsg{Item: item, Err: catalog.AddSaved(ctx, item.ID)}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) entries(items []client.MediaItem) []list.Item {
	out := make([]list.Item, 0, len(items))
	for _, it := range items {
		out = append(out, entry{item: it, saved: m.saved[it.ID]})
	}
	return out
}

func (m Model) View() string {
	switch {
	case m.loading:
		return theme.StyleDimmed.Render("Loading catalog...")
	case m.err != "":
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleError.Render(m.err),
			theme.StyleDimmed.Render("esc: back"))
	}
	help := "a/enter:add  /:filter  esc:back"
	if m.adding != "" {
		help = "adding..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), theme.StyleDimmed.Render(help))
}

// AddOutcome is the feedback text for an AddedMsg.
func AddOutcome(msg AddedMsg) string {
	if msg.Err == nil {
		return MsgAdded
	}
	if client.KindOf(msg.Err) == client.KindSoft {
		return client.MessageOr(msg.Err, MsgAddFailed)
	}
	return MsgAddError
}
