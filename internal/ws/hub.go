package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBuffer = 64

// ErrHubClosed is returned by AddClient once the hub has shut down.
var ErrHubClosed = errors.New("hub closed")

type client struct {
	conn  *websocket.Conn
	email string
	send  chan []byte
}

func newClient(conn *websocket.Conn, email string) *client {
	c := &client{
		conn:  conn,
		email: email,
		send:  make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Hub fans change events out to the sockets of the affected viewer only.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]bool // email -> clients
	seq     uint64
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]bool),
	}
}

// AddClient registers conn for email and greets it. The hello is queued
// under the lock so a concurrent Close cannot close the queue first.
func (h *Hub) AddClient(conn *websocket.Conn, email string) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	c := newClient(conn, email)
	if h.clients[email] == nil {
		h.clients[email] = make(map[*client]bool)
	}
	h.clients[email][c] = true
	h.seq++
	hello, _ := json.Marshal(WSMessage{Type: MsgHello, Seq: h.seq, Payload: HelloPayload{Email: email}})
	c.send <- hello // fresh queue, cannot block
	return c, nil
}

func (h *Hub) RemoveClient(c *client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.email]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.email)
	}
	c.close()
}

// ClientCount returns the number of sockets open for email.
func (h *Hub) ClientCount(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[email])
}

// NotifyChange tells every socket of email that its list changed.
func (h *Hub) NotifyChange(email string, p WatchLaterChangedPayload) {
	h.sendTo(email, MsgWatchLaterChange, p)
}

func (h *Hub) sendTo(email string, typ MessageType, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	data, err := json.Marshal(WSMessage{Type: typ, Seq: h.seq, Payload: payload})
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}

	for c := range h.clients[email] {
		select {
		case c.send <- data:
		default:
			// Client too slow; drop it rather than block the hub.
			delete(h.clients[email], c)
			c.close()
		}
	}
	if len(h.clients[email]) == 0 {
		delete(h.clients, email)
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for email, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, email)
	}
}
