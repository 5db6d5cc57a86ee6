//go:build linux

package ws

import (
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Epoll wraps Linux epoll syscalls for WebSocket read readiness. Instead of
// parking a goroutine per connection, file descriptors are registered with
// the kernel and Wait reports the ones with pending data.
type Epoll struct {
	fd          int                 // epoll file descriptor
	connections map[int]*Connection // fd -> Connection
	mu          sync.RWMutex        // protects connections
	events      []unix.EpollEvent   // reusable event buffer for Wait
}

// readEvents is armed one-shot: a ready connection is reported once and
// stays silent until Resume re-arms it after its frame has been handled.
const readEvents = unix.EPOLLIN | unix.EPOLLHUP | unix.EPOLLRDHUP | unix.EPOLLONESHOT

// NewEpoll creates a new epoll instance using epoll_create1.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Epoll{
		fd:          fd,
		connections: make(map[int]*Connection),
		events:      make([]unix.EpollEvent, 128),
	}, nil
}

// Add registers c for read and hangup notifications. After Close it
// returns ErrPollerClosed.
func (e *Epoll) Add(c *Connection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connections == nil {
		return ErrPollerClosed
	}

	e.connections[c.Fd] = c
	if err := unix.EpollCtl(e.fd, syscall.EPOLL_CTL_ADD, c.Fd, &unix.EpollEvent{
		Events: readEvents,
		Fd:     int32(c.Fd),
	}); err != nil {
		delete(e.connections, c.Fd)
		return err
	}
	return nil
}

// Remove unregisters c. The fd is only touched while it still belongs to c,
// since a closed fd may already be reused by a newer connection.
func (e *Epoll) Remove(c *Connection) error {
	e.mu.Lock()
	cur, ok := e.connections[c.Fd]
	if ok && cur == c {
		delete(e.connections, c.Fd)
	}
	e.mu.Unlock()
	if !ok || cur != c {
		return nil
	}
	return unix.EpollCtl(e.fd, syscall.EPOLL_CTL_DEL, c.Fd, nil)
}

// Wait blocks until one or more registered connections are ready. Entries
// removed between epoll_wait returning and the lookup are skipped.
func (e *Epoll) Wait() ([]*Connection, error) {
	n, err := unix.EpollWait(e.fd, e.events, 100)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	conns := make([]*Connection, 0, n)
	for i := 0; i < n; i++ {
		if c, ok := e.connections[int(e.events[i].Fd)]; ok {
			conns = append(conns, c)
		}
	}
	e.mu.RUnlock()
	return conns, nil
}

// Resume re-arms c after a frame has been handled.
func (e *Epoll) Resume(c *Connection) {
	e.mu.RLock()
	cur, ok := e.connections[c.Fd]
	e.mu.RUnlock()
	if !ok || cur != c {
		return
	}
	_ = unix.EpollCtl(e.fd, syscall.EPOLL_CTL_MOD, c.Fd, &unix.EpollEvent{
		Events: readEvents,
		Fd:     int32(c.Fd),
	})
}

// Close closes the epoll file descriptor. Later calls are no-ops.
func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connections == nil {
		return nil
	}
	e.connections = nil
	return unix.Close(e.fd)
}

// socketFD extracts the file descriptor from a net.Conn using the
// SyscallConn interface. This avoids duplicating the file descriptor
// (which File() does), keeping the original fd valid for epoll registration.
func socketFD(conn net.Conn) int {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}

	var fd int
	_ = raw.Control(func(sfd uintptr) {
		fd = int(sfd)
	})
	return fd
}

// isEINTR reports an epoll_wait interrupted by a signal.
func isEINTR(err error) bool {
	return err == unix.EINTR
}
