package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// Change-feed timing.
const (
	feedRetryMin   = time.Second
	feedRetryMax   = 30 * time.Second
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait / 2
)

// ErrFeedRejected means the service refused the token; retrying cannot help.
var ErrFeedRejected = errors.New("change feed rejected the session token")

var errNotConnected = errors.New("change feed not connected")

// WSClient follows one viewer's change feed. The server greets every socket
// with a hello naming the account, so a connection only counts as up once
// that greeting has been read.
type WSClient struct {
	url    string
	token  string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	stopPing context.CancelFunc
	seq      uint64
	connects int
}

// NewWSClient creates a feed client for url, authenticating with token.
func NewWSClient(url, token string) *WSClient {
	return &WSClient{
		url:   url,
		token: token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: feedWriteWait,
		},
	}
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent once the server's hello arrives. Reconnect is set
// for every connection after the first; events may have been missed in
// between.
type WSConnectedMsg struct {
	Email     string
	Reconnect bool
}

// WSDisconnectedMsg is sent when an established connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSRejectedMsg is sent when the service refuses the token. Listen gives up.
type WSRejectedMsg struct{ Err error }

// WSChangedMsg reports that the viewer's watch-later list changed on the server.
type WSChangedMsg struct{ Payload WatchLaterChangedPayload }

// WSErrorMsg wraps a server-side error.
type WSErrorMsg struct{ Raw json.RawMessage }

// Listen returns a command that connects, backing off between failed
// attempts, until the hello arrives, the token is refused, or ctx ends.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		retry := feedRetryMin
		for ctx.Err() == nil {
			conn, hello, err := c.handshake(ctx)
			if err == nil {
				return c.attach(ctx, conn, hello)
			}
			if errors.Is(err, ErrFeedRejected) {
				return WSRejectedMsg{Err: err}
			}
			log.Printf("change feed: %v (retry in %v)", err, retry)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retry):
			}
			retry = min(retry*2, feedRetryMax)
		}
		return nil
	}
}

// handshake dials and reads the greeting.
func (c *WSClient) handshake(ctx context.Context) (*websocket.Conn, WSMessage, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, WSMessage{}, ErrFeedRejected
		}
		return nil, WSMessage{}, fmt.Errorf("dial: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(feedWriteWait))
	var hello WSMessage
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, WSMessage{}, fmt.Errorf("reading hello: %w", err)
	}
	if hello.Type != MsgHello {
		conn.Close()
		return nil, WSMessage{}, fmt.Errorf("got %q before hello", hello.Type)
	}
	return conn, hello, nil
}

// attach makes conn the active connection and starts its keepalive.
func (c *WSClient) attach(ctx context.Context, conn *websocket.Conn, hello WSMessage) tea.Msg {
	var p HelloPayload
	_ = json.Unmarshal(hello.Payload, &p)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	pingCtx, stop := context.WithCancel(ctx)

	c.mu.Lock()
	if c.stopPing != nil {
		c.stopPing()
	}
	c.conn = conn
	c.stopPing = stop
	c.seq = hello.Seq
	reconnect := c.connects > 0
	c.connects++
	c.mu.Unlock()

	go keepAlive(pingCtx, conn)
	return WSConnectedMsg{Email: p.Email, Reconnect: reconnect}
}

// detach forgets conn if it is still the active connection.
func (c *WSClient) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		if c.stopPing != nil {
			c.stopPing()
			c.stopPing = nil
		}
	}
	c.mu.Unlock()
	conn.Close()
}

// ReadLoop returns a command that blocks until the next message worth
// reporting. Re-issue it after each one.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: errNotConnected}
		}

		for {
			conn.SetReadDeadline(time.Now().Add(feedPongWait))
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.detach(conn)
				if ctx.Err() != nil {
					return nil
				}
				return WSDisconnectedMsg{Err: err}
			}

			var msg WSMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("change feed: skipping malformed message: %v", err)
				continue
			}
			c.mu.Lock()
			c.seq = msg.Seq
			c.mu.Unlock()

			if teaMsg := dispatch(msg); teaMsg != nil {
				return teaMsg
			}
		}
	}
}

// Close sends a close frame and drops the active connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, bye, time.Now().Add(feedWriteWait))
	c.detach(conn)
}

// Seq returns the sequence number of the last message read.
func (c *WSClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// keepAlive pings until ctx ends or a ping fails. WriteControl is safe to
// call concurrently with reads.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}

func dispatch(msg WSMessage) tea.Msg {
	switch msg.Type {
	case MsgWatchLaterChange:
		var p WatchLaterChangedPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSChangedMsg{Payload: p}
		}
	case MsgError:
		return WSErrorMsg{Raw: msg.Payload}
	}
	return nil
}
