// Package client is a simulated lobby user for load tests. It speaks the
// {"type","data"} push protocol over gobwas/ws, the library the server uses,
// and records per-connection timings.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// ---------------------------------------------------------------------------
// Protocol event names (local copies, the loadtest is its own module)
// ---------------------------------------------------------------------------

const (
	TypeUserJoin           = "user_join"
	TypeUserLeave          = "user_leave"
	TypeGameInvite         = "game_invite"
	TypeGameInviteCancel   = "game_invite_cancel"
	TypeGameInviteResponse = "game_invite_response"
	TypePing               = "ping"

	TypeOnlineUsers = "online_users"
	TypeUserOffline = "user_offline"
	TypeRateLimited = "rate_limited"
	TypeError       = "error"
	TypePong        = "pong"
)

// ErrClosed is returned by Wait when the connection went away first.
var ErrClosed = errors.New("client: connection closed")

// Envelope is one frame in either direction.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OnlineUser is one entry of an online_users snapshot.
type OnlineUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Invite is the payload of game_invite and game_invite_cancel.
type Invite struct {
	InviterID string `json:"inviterId"`
	InviteeID string `json:"inviteeId"`
}

// InviteResponse is the payload of game_invite_response.
type InviteResponse struct {
	InviterID string `json:"inviterId"`
	InviteeID string `json:"inviteeId"`
	Accepted  bool   `json:"accepted"`
}

// Metrics tracks per-connection performance data.
type Metrics struct {
	ConnectLatency  time.Duration
	JoinLatency     time.Duration // user_join sent until a snapshot listing the user
	FramesReceived  int
	FramesSent      int
	RateLimited     int
	ServerErrors    int
	TransportErrors int
}

// Client is one simulated connection. Handlers run on the read goroutine.
type Client struct {
	conn      net.Conn
	userID    string
	writeMu   sync.Mutex
	mu        sync.Mutex
	metrics   Metrics
	handlers  map[string]func(json.RawMessage)
	joinStart time.Time
	joined    chan struct{}
	joinOnce  sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

// New dials url and starts reading. The server pushes an online_users
// snapshot right after the upgrade; it is counted like any other frame.
func New(ctx context.Context, url string) (*Client, error) {
	start := time.Now()
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{
		conn:     conn,
		handlers: make(map[string]func(json.RawMessage)),
		joined:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.metrics.ConnectLatency = time.Since(start)

	go c.readLoop()
	return c, nil
}

// On registers the handler for one event type, replacing any earlier one.
// Register before Join to avoid missing frames.
func (c *Client) On(event string, handler func(data json.RawMessage)) {
	c.mu.Lock()
	c.handlers[event] = handler
	c.mu.Unlock()
}

// Send writes one frame. It is goroutine-safe.
func (c *Client) Send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data, err := json.Marshal(Envelope{Type: event, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wsutil.WriteClientMessage(c.conn, ws.OpText, data); err != nil {
		c.mu.Lock()
		c.metrics.TransportErrors++
		c.mu.Unlock()
		return err
	}
	c.mu.Lock()
	c.metrics.FramesSent++
	c.mu.Unlock()
	return nil
}

// Join binds the connection to userID and waits until a snapshot lists it.
func (c *Client) Join(ctx context.Context, userID, username string) error {
	c.mu.Lock()
	c.userID = userID
	c.joinStart = time.Now()
	c.mu.Unlock()

	if err := c.Send(TypeUserJoin, map[string]string{
		"userId":   userID,
		"username": username,
		"avatar":   "🤖",
	}); err != nil {
		return err
	}

	select {
	case <-c.joined:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UserID returns the id passed to Join.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// GetMetrics returns a copy of the client's metrics.
func (c *Client) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

func (c *Client) readLoop() {
	defer c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})

	for {
		data, err := wsutil.ReadServerText(c.conn)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.mu.Lock()
				c.metrics.TransportErrors++
				c.mu.Unlock()
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		c.mu.Lock()
		c.metrics.FramesReceived++
		switch env.Type {
		case TypeRateLimited:
			c.metrics.RateLimited++
		case TypeError:
			c.metrics.ServerErrors++
		}
		handler := c.handlers[env.Type]
		c.mu.Unlock()

		if env.Type == TypeOnlineUsers {
			c.checkJoined(env.Data)
		}
		if handler != nil {
			handler(env.Data)
		}
	}
}

// checkJoined completes Join once a snapshot contains this user.
func (c *Client) checkJoined(data json.RawMessage) {
	c.mu.Lock()
	userID, start := c.userID, c.joinStart
	c.mu.Unlock()
	if userID == "" {
		return
	}

	var users []OnlineUser
	if err := json.Unmarshal(data, &users); err != nil {
		return
	}
	for _, u := range users {
		if u.UserID != userID {
			continue
		}
		c.joinOnce.Do(func() {
			c.mu.Lock()
			c.metrics.JoinLatency = time.Since(start)
			c.mu.Unlock()
			close(c.joined)
		})
		return
	}
}
