// Package client provides HTTP and WebSocket clients for the Streamverse
// authentication and media catalog services.
// Types mirror the service wire format without importing server packages.
package client

import "encoding/json"

// Envelope is the uniform response shape of every service endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// MediaItem is a single title on a watch-later list or in the catalog.
type MediaItem struct {
	ID        string   `json:"_id"`
	Title     string   `json:"title"`
	PosterRef string   `json:"posterUrl,omitempty"`
	Year      int      `json:"year"`
	Type      string   `json:"type"`
	Genres    []string `json:"genres,omitempty"`
	Plot      string   `json:"plot,omitempty"`
}

// Credentials is the email/password login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the data returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	Email string `json:"email,omitempty"`
}

// --- WebSocket protocol ---

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	MsgHello            MessageType = "hello"
	MsgWatchLaterChange MessageType = "watch_later_changed"
	MsgError            MessageType = "error"
)

// WSMessage is the envelope for all WebSocket messages.
type WSMessage struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// HelloPayload greets a new socket with the account it belongs to.
type HelloPayload struct {
	Email string `json:"email"`
}

// ChangeAction describes what happened to a watch-later entry.
type ChangeAction string

const (
	ActionAdded   ChangeAction = "added"
	ActionRemoved ChangeAction = "removed"
)

// WatchLaterChangedPayload is pushed when the viewer's list changes.
type WatchLaterChangedPayload struct {
	ItemID string       `json:"itemId"`
	Action ChangeAction `json:"action"`
	Origin string       `json:"origin,omitempty"`
}
