package ws

type MessageType string

const (
	MsgHello            MessageType = "hello"
	MsgWatchLaterChange MessageType = "watch_later_changed"
	MsgError            MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

type HelloPayload struct {
	Email string `json:"email"`
}

type ChangeAction string

const (
	ActionAdded   ChangeAction = "added"
	ActionRemoved ChangeAction = "removed"
)

type WatchLaterChangedPayload struct {
	ItemID string       `json:"itemId"`
	Action ChangeAction `json:"action"`
	// Origin is the client id that caused the change, if any.
	Origin string `json:"origin,omitempty"`
}

// Envelope is the body of every REST response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
