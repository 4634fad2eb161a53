// Package watchlist is the renderer-agnostic core of the watch-later screen:
// it loads the viewer's list from the catalog, removes entries after the
// catalog confirms, and reports the outcome through a feedback channel.
package watchlist

import "github.com/makavanaraju78/Streamverse/internal/client"

// User-facing messages.
const (
	MsgRemoved      = "Removed from Watch Later"
	MsgRemoveFailed = "Failed to remove from Watch Later"
	MsgRemoveError  = "An error occurred"
	MsgFetchFailed  = "Failed to fetch Watch Later list"
	MsgFetchError   = "An error occurred while fetching your Watch Later list"
)

// State is a snapshot of the list. Observers receive copies; mutating one
// has no effect on the controller.
type State struct {
	Items   []client.MediaItem
	Loading bool
	// Loaded is set after the first successful fetch.
	Loaded bool
	// Denied is set when the session gate refused entry.
	Denied bool
	Err    string
	// Pending holds ids with a removal request in flight.
	Pending map[string]bool
}

// Len returns the number of items.
func (s State) Len() int { return len(s.Items) }

// Find returns the item with the given id.
func (s State) Find(id string) (client.MediaItem, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return client.MediaItem{}, false
}

func (s State) clone() State {
	out := s
	if s.Items != nil {
		out.Items = make([]client.MediaItem, len(s.Items))
		copy(out.Items, s.Items)
	}
	if len(s.Pending) > 0 {
		out.Pending = make(map[string]bool, len(s.Pending))
		for id := range s.Pending {
			out.Pending[id] = true
		}
	} else {
		out.Pending = nil
	}
	return out
}

// uniqueExcept keeps the first occurrence of every id and drops the ids in skip.
func uniqueExcept(items []client.MediaItem, skip map[string]bool) []client.MediaItem {
	out := make([]client.MediaItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] || skip[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

// without filters by id rather than position.
func without(items []client.MediaItem, id string) []client.MediaItem {
	out := make([]client.MediaItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
