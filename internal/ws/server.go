// Package ws is the push channel transport: it upgrades HTTP connections to
// WebSocket, watches them for read readiness with epoll, reads frames on a
// bounded worker pool, and writes outbound frames from per-connection
// queues.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/metrics"
)

// handlerTimeout bounds one inbound message from read to reply.
const handlerTimeout = 10 * time.Second

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	ListenAddr     string        // address to listen on, e.g. ":8443"
	WorkerPoolSize int           // max concurrent read-worker goroutines
	MaxConnections int           // hard cap on total connections
	ReadTimeout    time.Duration // timeout for WebSocket read operations
	WriteTimeout   time.Duration // timeout for WebSocket write operations
	SendBuffer     int           // outbound frames queued per connection
	MaxFrameBytes  int64         // larger inbound frames close the connection
	Heartbeat      HeartbeatConfig
	CertFile       string // TLS when both CertFile and KeyFile are set
	KeyFile        string
}

// DefaultServerConfig returns a ServerConfig with sensible production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8443",
		WorkerPoolSize: 256,
		MaxConnections: 100000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendBuffer:     128,
		MaxFrameBytes:  64 << 10,
		Heartbeat:      DefaultHeartbeatConfig(),
	}
}

// SessionStore mirrors live connections somewhere outside the process.
type SessionStore interface {
	Create(ctx context.Context, handle string) error
	Delete(ctx context.Context, handle string) error
}

// Server is the WebSocket server built on gobwas/ws and epoll.
type Server struct {
	config       ServerConfig
	epoll        *Epoll
	conns        *ConnectionManager
	sessions     SessionStore
	workerPool   chan struct{} // semaphore limiting concurrent read workers
	onMessage    func(ctx context.Context, conn *Connection, data []byte)
	onConnect    func(conn *Connection)
	onDisconnect func(handle string)
	onlineUsers  func() int
	mux          *http.ServeMux
	httpServer   *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	stopOnce     sync.Once
	startedAt    time.Time
}

// NewServer creates a Server. onMessage is called from a worker goroutine
// for every complete text frame; frames of one connection are never
// handled concurrently. sessions may be nil.
func NewServer(config ServerConfig, sessions SessionStore, onMessage func(ctx context.Context, conn *Connection, data []byte)) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     config,
		conns:      NewConnectionManager(),
		sessions:   sessions,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		onMessage:  onMessage,
		mux:        http.NewServeMux(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	s.mux.HandleFunc("/ws", s.handleUpgrade)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())
	return s
}

// Handle mounts an additional HTTP handler, e.g. the REST API on "/".
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// SetOnConnect registers a callback invoked after a connection is
// registered and before its first frame is read.
func (s *Server) SetOnConnect(fn func(conn *Connection)) {
	s.onConnect = fn
}

// SetOnDisconnect registers a callback invoked when a connection is removed
// (read error, heartbeat timeout, write failure or close frame). It runs
// before the session mirror entry is deleted.
func (s *Server) SetOnDisconnect(fn func(handle string)) {
	s.onDisconnect = fn
}

// SetOnlineCounter supplies the online user count reported by /health.
func (s *Server) SetOnlineCounter(fn func() int) {
	s.onlineUsers = fn
}

// Init creates the poller and starts the read and heartbeat loops. Start
// calls it; tests serving Handler through httptest call it directly.
func (s *Server) Init() error {
	var err error
	s.epoll, err = NewEpoll()
	if err != nil {
		return fmt.Errorf("ws: failed to create epoll: %w", err)
	}
	s.startedAt = time.Now()

	go s.startEventLoop()
	s.startHeartbeat(s.config.Heartbeat)
	return nil
}

// Start initializes the server and blocks serving HTTP, over TLS when a
// certificate and key are configured.
func (s *Server) Start() error {
	if err := s.Init(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: s.config.ReadTimeout,
	}

	tls := s.config.CertFile != "" && s.config.KeyFile != ""
	log.Info().Str("component", "ws").
		Str("addr", s.config.ListenAddr).
		Int("workers", s.config.WorkerPoolSize).
		Int("max_conns", s.config.MaxConnections).
		Bool("tls", tls).
		Msg("server listening")

	if tls {
		err := s.httpServer.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ws: https server error: %w", err)
		}
		return nil
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ws: http server error: %w", err)
	}
	return nil
}

// handleUpgrade upgrades an HTTP request to a WebSocket connection using
// the gobwas/ws zero-copy upgrader, registers it, starts its writer, and
// hands it to the poller.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Debug().Str("component", "ws").Err(err).Msg("upgrade failed")
		return
	}

	c := newConnection(uuid.NewString(), conn, s.config.SendBuffer, s.config.WriteTimeout)
	s.conns.Add(c)
	metrics.ConnectionsTotal.Inc()

	go func() {
		if err := c.writeLoop(); err != nil {
			log.Debug().Str("component", "ws").Str("conn", c.ID).Err(err).Msg("write failed")
			s.RemoveConnection(c)
		}
	}()

	if s.sessions != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
		if err := s.sessions.Create(ctx, c.ID); err != nil {
			log.Warn().Str("component", "ws").Str("conn", c.ID).Err(err).Msg("failed to create session")
		}
		cancel()
	}

	// The snapshot is queued before the first inbound frame can be read.
	if s.onConnect != nil {
		s.onConnect(c)
	}

	if err := s.epoll.Add(c); err != nil {
		if errors.Is(err, ErrPollerClosed) {
			log.Debug().Str("component", "ws").Str("conn", c.ID).Msg("upgrade raced shutdown")
		} else {
			log.Error().Str("component", "ws").Str("conn", c.ID).Err(err).Msg("epoll add failed")
		}
		s.RemoveConnection(c)
		return
	}

	log.Info().Str("component", "ws").Str("conn", c.ID).Int("fd", c.Fd).
		Int("total", s.conns.Count()).Msg("connection opened")
}

// handleHealth reports the connection count, online users and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	online := 0
	if s.onlineUsers != nil {
		online = s.onlineUsers()
	}

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		OnlineUsers int    `json:"onlineUsers"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.conns.Count(),
		OnlineUsers: online,
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// startEventLoop waits for ready connections and hands each to a worker,
// bounded by the worker pool semaphore.
func (s *Server) startEventLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conns, err := s.epoll.Wait()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if !isEINTR(err) {
				log.Error().Str("component", "ws").Err(err).Msg("epoll wait error")
			}
			continue
		}

		for _, c := range conns {
			c := c
			s.workerPool <- struct{}{}
			go func() {
				defer func() { <-s.workerPool }()
				s.handleConn(c)
			}()
		}
	}
}

// handleConn reads a single frame from a ready connection. Control frames
// are answered in place; a read failure or close frame removes the
// connection.
func (s *Server) handleConn(c *Connection) {
	if !atomic.CompareAndSwapInt32(&c.processing, 0, 1) {
		return
	}
	defer func() {
		atomic.StoreInt32(&c.processing, 0)
		s.epoll.Resume(c)
	}()
	if c.IsClosed() {
		return
	}

	if s.config.ReadTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	header, reader, err := wsutil.NextReader(c.reader, ws.StateServerSide)
	if err != nil {
		// A timeout means the readiness was stale; the heartbeat handles
		// dead connections.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}
		s.RemoveConnection(c)
		return
	}
	_ = c.Conn.SetReadDeadline(time.Time{})

	if s.config.MaxFrameBytes > 0 && header.Length > s.config.MaxFrameBytes {
		log.Warn().Str("component", "ws").Str("conn", c.ID).Int64("length", header.Length).Msg("frame too large")
		s.RemoveConnection(c)
		return
	}

	payload := make([]byte, header.Length)
	if header.Length > 0 {
		if _, err := io.ReadFull(reader, payload); err != nil {
			s.RemoveConnection(c)
			return
		}
	}

	// Any frame proves the connection is alive.
	c.Touch()

	if header.OpCode.IsControl() {
		switch header.OpCode {
		case ws.OpClose:
			s.RemoveConnection(c)
		case ws.OpPing:
			_ = c.write(func() error { return ws.WriteFrame(c.Conn, ws.NewPongFrame(payload)) })
		}
		return
	}

	if len(payload) == 0 || s.onMessage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, handlerTimeout)
	defer cancel()
	s.onMessage(ctx, c, payload)
}

// RemoveConnection unregisters and closes c, then notifies the application
// and drops the session mirror entry. Only the first call for a connection
// has any effect.
func (s *Server) RemoveConnection(c *Connection) {
	if s.epoll != nil {
		_ = s.epoll.Remove(c)
	}
	if !s.conns.Remove(c.ID) {
		return
	}
	metrics.ConnectionsTotal.Dec()

	if s.onDisconnect != nil {
		s.onDisconnect(c.ID)
	}

	if s.sessions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.sessions.Delete(ctx, c.ID); err != nil {
			log.Warn().Str("component", "ws").Str("conn", c.ID).Err(err).Msg("failed to delete session")
		}
		cancel()
	}

	log.Info().Str("component", "ws").Str("conn", c.ID).Int("total", s.conns.Count()).Msg("connection closed")
}

// SendMessage queues a text frame for the connection identified by handle.
// A connection whose queue is full is closed asynchronously: callers may be
// running on the event loop, which the disconnect path needs.
func (s *Server) SendMessage(handle string, data []byte) error {
	c := s.conns.Get(handle)
	if c == nil {
		return fmt.Errorf("ws: connection %s not found", handle)
	}
	err := c.Enqueue(data)
	if errors.Is(err, ErrSendBufferFull) {
		log.Warn().Str("component", "ws").Str("conn", handle).Msg("send buffer full, closing")
		go s.RemoveConnection(c)
	}
	return err
}

// Broadcast queues data for every open connection and returns how many
// accepted it.
func (s *Server) Broadcast(data []byte) int {
	n := 0
	for _, c := range s.conns.All() {
		if err := s.SendMessage(c.ID, data); err == nil {
			n++
		}
	}
	return n
}

// IsOpen reports whether handle is a live connection.
func (s *Server) IsOpen(handle string) bool {
	c := s.conns.Get(handle)
	return c != nil && !c.IsClosed()
}

// Connections returns the ConnectionManager.
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Shutdown stops accepting connections, closes every open one, and runs
// the disconnect path for each so presence is cleared while the
// application is still running.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		log.Info().Str("component", "ws").Msg("shutting down server")
		close(s.done)

		if s.httpServer != nil {
			if e := s.httpServer.Shutdown(ctx); e != nil {
				err = fmt.Errorf("ws: http shutdown: %w", e)
			}
		}

		// Close first so the disconnect broadcasts skip dying peers.
		all := s.conns.All()
		for _, c := range all {
			c.Close()
		}
		for _, c := range all {
			s.RemoveConnection(c)
		}

		if s.epoll != nil {
			_ = s.epoll.Close()
		}
		s.cancel()
		log.Info().Str("component", "ws").Int("closed", len(all)).Msg("server stopped")
	})
	return err
}
