package ws

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var (
	// ErrConnectionClosed is returned when queueing to a closed connection.
	ErrConnectionClosed = errors.New("ws: connection closed")

	// ErrSendBufferFull is returned when a connection's outbound queue is full.
	ErrSendBufferFull = errors.New("ws: send buffer full")

	// ErrPollerClosed is returned when adding a connection after shutdown.
	ErrPollerClosed = errors.New("ws: poller closed")
)

// Connection represents a single WebSocket client connection. Outbound
// frames are queued on send and written by the connection's own writer
// goroutine, so callers never block on a slow client.
type Connection struct {
	ID        string    // connection handle (UUID)
	Conn      net.Conn  // underlying TCP connection
	Fd        int       // file descriptor for epoll lookups, -1 off Linux
	CreatedAt time.Time // when the connection was established

	reader       io.Reader     // frame source; buffered off Linux
	writeTimeout time.Duration // per-frame write deadline, 0 for none
	lastActive atomic.Int64 // unix nanos of the last inbound frame
	writeMu    sync.Mutex   // serializes writes to this connection
	processing int32        // atomic flag: 0 = idle, 1 = being read by a worker
	send       chan []byte
	closed     chan struct{}
	closeOnce  sync.Once
}

func newConnection(id string, conn net.Conn, sendBuffer int, writeTimeout time.Duration) *Connection {
	c := &Connection{
		ID:           id,
		Conn:         conn,
		Fd:           socketFD(conn),
		CreatedAt:    time.Now(),
		reader:       conn,
		writeTimeout: writeTimeout,
		send:         make(chan []byte, sendBuffer),
		closed:       make(chan struct{}),
	}
	c.Touch()
	return c
}

// Touch records inbound activity.
func (c *Connection) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last inbound frame.
func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Enqueue queues a text frame without blocking.
func (c *Connection) Enqueue(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// WriteMessage sends a WebSocket text frame to this connection. The write
// mutex ensures that concurrent goroutines do not interleave frame bytes.
func (c *Connection) WriteMessage(data []byte) error {
	return c.write(func() error {
		return wsutil.WriteServerMessage(c.Conn, ws.OpText, data)
	})
}

// WritePing sends a WebSocket protocol-level ping frame (opcode 0x9).
func (c *Connection) WritePing() error {
	return c.write(func() error {
		return ws.WriteFrame(c.Conn, ws.NewPingFrame(nil))
	})
}

func (c *Connection) write(fn func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.Conn.SetWriteDeadline(time.Time{})
	}
	return fn()
}

// writeLoop drains the send queue until the connection closes. It returns
// the first write error.
func (c *Connection) writeLoop() error {
	for {
		select {
		case <-c.closed:
			return nil
		case data := <-c.send:
			if err := c.WriteMessage(data); err != nil {
				return err
			}
		}
	}
}

// Close closes the underlying network connection. It is safe to call more
// than once; the send channel is never closed.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.Conn.Close()
	})
	return err
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// ConnectionManager is a thread-safe registry of live connections keyed by
// handle.
type ConnectionManager struct {
	mu   sync.RWMutex
	byID map[string]*Connection
}

// NewConnectionManager creates an empty ConnectionManager ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{byID: make(map[string]*Connection)}
}

// Add registers a new connection.
func (cm *ConnectionManager) Add(conn *Connection) {
	cm.mu.Lock()
	cm.byID[conn.ID] = conn
	cm.mu.Unlock()
}

// Remove removes a connection by handle and closes it. Returns true if the
// connection was found and removed, false if it was already gone.
func (cm *ConnectionManager) Remove(id string) bool {
	cm.mu.Lock()
	conn, ok := cm.byID[id]
	if ok {
		delete(cm.byID, id)
	}
	cm.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// Get returns the connection for the given handle, or nil if not found.
func (cm *ConnectionManager) Get(id string) *Connection {
	cm.mu.RLock()
	conn := cm.byID[id]
	cm.mu.RUnlock()
	return conn
}

// Count returns the current number of active connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	n := len(cm.byID)
	cm.mu.RUnlock()
	return n
}

// All returns a snapshot of all current connections.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.byID))
	for _, conn := range cm.byID {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()
	return conns
}
