// Package lifecycle reacts to connect, join, leave and disconnect. It is the
// only writer of the presence registry and rebroadcasts the full online list
// after every membership change.
package lifecycle

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/eventloop"
	"github.com/arcade/lobby/internal/metrics"
	"github.com/arcade/lobby/internal/presence"
	"github.com/arcade/lobby/internal/protocol"
	"github.com/arcade/lobby/internal/store"
)

// Broadcaster is the subset of fanout.Broadcaster the handler needs.
type Broadcaster interface {
	Send(userIDs []string, event string, payload any) int
	SendTo(handle string, event string, payload any) error
	SendAll(event string, payload any) int
}

// SessionMirror records which user a connection joined as.
type SessionMirror interface {
	BindUser(ctx context.Context, handle, userID string) error
}

// PresencePublisher announces users going online or offline to other
// services.
type PresencePublisher interface {
	PublishPresence(userID string, online bool) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithSessionMirror enables the Redis session mirror.
func WithSessionMirror(m SessionMirror) Option {
	return func(h *Handler) { h.sessions = m }
}

// WithPresencePublisher enables presence publication.
func WithPresencePublisher(p PresencePublisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// Handler drives the per-connection state machine.
type Handler struct {
	tracker   *presence.Tracker
	reg       *presence.Registry
	store     store.Store
	bcast     Broadcaster
	exec      eventloop.Executor
	sessions  SessionMirror
	publisher PresencePublisher
	online    atomic.Int64
}

// New returns a Handler. tracker must be backed by the registry the
// broadcaster resolves against.
func New(tracker *presence.Tracker, st store.Store, b Broadcaster, exec eventloop.Executor, opts ...Option) *Handler {
	h := &Handler{
		tracker: tracker,
		reg:     tracker.Registry(),
		store:   st,
		bcast:   b,
		exec:    exec,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnlineUsers returns the number of distinct online users. Safe from any
// goroutine.
func (h *Handler) OnlineUsers() int { return int(h.online.Load()) }

// Connect sends the current snapshot to the new connection only.
func (h *Handler) Connect(ctx context.Context, handle string) error {
	return h.exec.Do(ctx, func(ctx context.Context) error {
		if err := h.bcast.SendTo(handle, protocol.TypeOnlineUsers, h.tracker.Snapshot()); err != nil {
			return fmt.Errorf("lifecycle: connect snapshot: %w", err)
		}
		return nil
	})
}

// Join binds handle to the user, marks the user online and broadcasts the
// new snapshot. The user is marked online before the bind, so a storage
// failure leaves the registry untouched.
func (h *Handler) Join(ctx context.Context, handle string, j protocol.UserJoin) error {
	if j.UserID == "" || j.Username == "" {
		return fmt.Errorf("lifecycle: join: missing user id or username")
	}
	avatar := j.Avatar
	if avatar == "" {
		avatar = store.DefaultAvatar
	}

	return h.exec.Do(ctx, func(ctx context.Context) error {
		if err := h.store.SetOnline(ctx, j.UserID, true); err != nil {
			return fmt.Errorf("lifecycle: join: %w", err)
		}

		prev, rebound := h.reg.Bind(handle, presence.Identity{
			UserID:   j.UserID,
			Username: j.Username,
			Avatar:   avatar,
		})
		log.Info().Str("component", "lifecycle").Str("handle", handle).Str("user_id", j.UserID).
			Int("connections", h.tracker.ConnectionCount(j.UserID)).Msg("user joined")

		// A handle that switched accounts may have taken the old one offline.
		prevGone := rebound && prev.UserID != j.UserID && h.markOfflineIfGone(ctx, prev.UserID)
		h.publish(j.UserID, true)
		h.broadcastSnapshot()
		if prevGone {
			h.bcast.SendAll(protocol.TypeUserOffline, protocol.UserOffline{UserID: prev.UserID})
		}

		if h.sessions != nil {
			if err := h.sessions.BindUser(ctx, handle, j.UserID); err != nil {
				log.Warn().Str("component", "lifecycle").Str("handle", handle).Err(err).Msg("session mirror bind failed")
			}
		}
		return nil
	})
}

// Leave is an explicit logout: every connection of userID is unbound, the
// user is marked offline, and peers get the snapshot and user_offline.
func (h *Handler) Leave(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("lifecycle: leave: missing user id")
	}
	return h.exec.Do(ctx, func(ctx context.Context) error {
		removed := h.reg.UnbindAllForUser(userID)
		log.Info().Str("component", "lifecycle").Str("user_id", userID).Int("connections", len(removed)).Msg("user left")

		err := h.store.SetOnline(ctx, userID, false)
		if err != nil {
			log.Error().Str("component", "lifecycle").Str("user_id", userID).Err(err).Msg("mark offline failed")
		}
		h.publish(userID, false)
		h.broadcastSnapshot()
		h.bcast.SendAll(protocol.TypeUserOffline, protocol.UserOffline{UserID: userID})
		if err != nil {
			return fmt.Errorf("lifecycle: leave: %w", err)
		}
		return nil
	})
}

// Disconnect handles a transport close. Only this handle is unbound; the
// user goes offline, in storage and for peers, only when it was the last
// connection. Handles that never joined change nothing.
func (h *Handler) Disconnect(ctx context.Context, handle string) error {
	return h.exec.Do(ctx, func(ctx context.Context) error {
		e, ok := h.reg.Unbind(handle)
		if !ok {
			return nil
		}
		log.Info().Str("component", "lifecycle").Str("handle", handle).Str("user_id", e.UserID).
			Int("remaining", h.tracker.ConnectionCount(e.UserID)).Msg("connection unbound")
		gone := h.markOfflineIfGone(ctx, e.UserID)
		h.broadcastSnapshot()
		if gone {
			h.bcast.SendAll(protocol.TypeUserOffline, protocol.UserOffline{UserID: e.UserID})
		}
		return nil
	})
}

// markOfflineIfGone marks userID offline when none of its connections
// remain and reports whether it did. Storage failures are logged only: the
// registry already changed and the next join rewrites the flag.
func (h *Handler) markOfflineIfGone(ctx context.Context, userID string) bool {
	if h.tracker.IsOnline(userID) {
		return false
	}
	if err := h.store.SetOnline(ctx, userID, false); err != nil {
		log.Error().Str("component", "lifecycle").Str("user_id", userID).Err(err).Msg("mark offline failed")
	}
	h.publish(userID, false)
	return true
}

func (h *Handler) broadcastSnapshot() {
	h.online.Store(int64(h.tracker.OnlineCount()))
	metrics.OnlineUsers.Set(float64(h.tracker.OnlineCount()))
	h.bcast.SendAll(protocol.TypeOnlineUsers, h.tracker.Snapshot())
}

func (h *Handler) publish(userID string, online bool) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishPresence(userID, online); err != nil {
		log.Warn().Str("component", "lifecycle").Str("user_id", userID).Err(err).Msg("presence publish failed")
	}
}

// Sweep unbinds handles the transport no longer knows, for example after a
// crash between close and Disconnect. alive reports whether a handle is
// still open.
func (h *Handler) Sweep(ctx context.Context, alive func(handle string) bool) (int, error) {
	var n int
	err := h.exec.Do(ctx, func(ctx context.Context) error {
		var gone []string
		for _, e := range h.reg.AllEntries() {
			if alive(e.Handle) {
				continue
			}
			h.reg.Unbind(e.Handle)
			n++
			if h.markOfflineIfGone(ctx, e.UserID) {
				gone = append(gone, e.UserID)
			}
		}
		if n == 0 {
			return nil
		}
		h.broadcastSnapshot()
		for _, id := range gone {
			h.bcast.SendAll(protocol.TypeUserOffline, protocol.UserOffline{UserID: id})
		}
		return nil
	})
	return n, err
}

// StartSweeper runs Sweep every interval until ctx ends.
func (h *Handler) StartSweeper(ctx context.Context, interval time.Duration, alive func(handle string) bool) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := h.Sweep(ctx, alive)
				if err != nil {
					continue
				}
				if n > 0 {
					log.Warn().Str("component", "lifecycle").Int("swept", n).Msg("removed stale presence entries")
				}
			}
		}
	}()
}
