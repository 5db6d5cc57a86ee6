//go:build !linux

package ws

import (
	"bufio"
	"net"
	"sync"
)

// Epoll is the goroutine-per-connection fallback for non-Linux platforms.
// Each connection gets a monitor that peeks one byte through a buffered
// reader, reports readiness, and waits for Resume before peeking again, so
// the frame reader and the monitor never read concurrently.
type Epoll struct {
	mu      sync.Mutex
	resume  map[*Connection]chan struct{}
	readyCh chan *Connection
	done    chan struct{}
	once    sync.Once
}

// NewEpoll creates a fallback poller.
func NewEpoll() (*Epoll, error) {
	return &Epoll{
		resume:  make(map[*Connection]chan struct{}),
		readyCh: make(chan *Connection, 128),
		done:    make(chan struct{}),
	}, nil
}

// Add starts monitoring c. Frames are read from the same buffered reader
// the monitor peeks through, so no byte is lost. After Close it returns
// ErrPollerClosed.
func (e *Epoll) Add(c *Connection) error {
	select {
	case <-e.done:
		return ErrPollerClosed
	default:
	}

	br := bufio.NewReader(c.Conn)
	c.reader = br
	resume := make(chan struct{}, 1)

	e.mu.Lock()
	e.resume[c] = resume
	e.mu.Unlock()

	go e.monitor(c, br, resume)
	return nil
}

func (e *Epoll) monitor(c *Connection, br *bufio.Reader, resume chan struct{}) {
	for {
		// An error is reported as readiness too; the read path sees it.
		_, err := br.Peek(1)

		select {
		case e.readyCh <- c:
		case <-e.done:
			return
		case <-c.closed:
			return
		}
		if err != nil {
			return
		}

		select {
		case <-resume:
		case <-e.done:
			return
		case <-c.closed:
			return
		}
	}
}

// Remove stops tracking c. Its monitor exits once the connection closes.
func (e *Epoll) Remove(c *Connection) error {
	e.mu.Lock()
	delete(e.resume, c)
	e.mu.Unlock()
	return nil
}

// Resume lets c's monitor look for the next frame.
func (e *Epoll) Resume(c *Connection) {
	e.mu.Lock()
	ch, ok := e.resume[c]
	e.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Wait blocks until at least one connection is ready and returns every
// connection ready at that point.
func (e *Epoll) Wait() ([]*Connection, error) {
	var first *Connection
	select {
	case first = <-e.readyCh:
	case <-e.done:
		return nil, net.ErrClosed
	}

	conns := []*Connection{first}
	for {
		select {
		case c := <-e.readyCh:
			conns = append(conns, c)
		default:
			return conns, nil
		}
	}
}

// Close shuts down the fallback poller.
func (e *Epoll) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

// socketFD is unused off Linux.
func socketFD(net.Conn) int {
	return -1
}

func isEINTR(error) bool { return false }
