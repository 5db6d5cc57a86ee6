// Package social owns every relationship mutation: direct messages, blocks,
// friend edges and game invites. Each action validates, persists, and only
// then notifies the interested users through the broadcaster, all inside
// one event loop job so no other mutation interleaves.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/eventloop"
	"github.com/arcade/lobby/internal/metrics"
	"github.com/arcade/lobby/internal/protocol"
	"github.com/arcade/lobby/internal/store"
)

// Broadcaster is the subset of fanout.Broadcaster the coordinator needs.
type Broadcaster interface {
	Send(userIDs []string, event string, payload any) int
	SendAll(event string, payload any) int
}

// Throttle gates invite creation per inviter. A false result carries the
// time left before the next attempt may pass.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithThrottle enables the server-side invite cooldown.
func WithThrottle(t Throttle) Option {
	return func(c *Coordinator) { c.throttle = t }
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator runs relationship actions.
type Coordinator struct {
	store    store.Store
	bcast    Broadcaster
	exec     eventloop.Executor
	throttle Throttle
	now      func() time.Time
}

// New returns a Coordinator persisting to st and notifying through b. All
// mutations run on exec.
func New(st store.Store, b Broadcaster, exec eventloop.Executor, opts ...Option) *Coordinator {
	c := &Coordinator{store: st, bcast: b, exec: exec, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errNoop marks an action that succeeded without changing anything.
var errNoop = errors.New("noop")

// run executes fn on the loop and records the outcome.
func (c *Coordinator) run(ctx context.Context, action string, fn eventloop.Func) error {
	err := c.exec.Do(ctx, fn)
	switch {
	case err == nil:
		metrics.ActionsTotal.WithLabelValues(action, metrics.ResultOK).Inc()
	case errors.Is(err, errNoop):
		metrics.ActionsTotal.WithLabelValues(action, metrics.ResultNoop).Inc()
		return nil
	case errors.Is(err, ErrBlocked), errors.Is(err, ErrInvalid), errors.Is(err, ErrThrottled):
		metrics.ActionsTotal.WithLabelValues(action, metrics.ResultRejected).Inc()
	default:
		metrics.ActionsTotal.WithLabelValues(action, metrics.ResultError).Inc()
		log.Error().Str("component", "social").Str("action", action).Err(err).Msg("action failed")
	}
	return err
}

// blockedEitherWay reports whether a or b blocks the other.
func (c *Coordinator) blockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	ab, err := c.store.BlockExists(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("social: block check: %w", err)
	}
	if ab {
		return true, nil
	}
	ba, err := c.store.BlockExists(ctx, b, a)
	if err != nil {
		return false, fmt.Errorf("social: block check: %w", err)
	}
	return ba, nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// SendMessage stores a direct message and echoes it to both parties. It
// fails with ErrBlocked, without writing, if either user blocks the other.
func (c *Coordinator) SendMessage(ctx context.Context, senderID, receiverID, content string) (*store.Message, error) {
	if err := validatePair(senderID, receiverID); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	var msg *store.Message
	err := c.run(ctx, "send_message", func(ctx context.Context) error {
		blocked, err := c.blockedEitherWay(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}

		m := &store.Message{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Content:    content,
			Timestamp:  c.now().UTC().Truncate(time.Millisecond),
		}
		if err := c.store.InsertMessage(ctx, m); err != nil {
			return fmt.Errorf("social: insert message: %w", err)
		}
		msg = m

		c.bcast.Send([]string{senderID, receiverID}, protocol.TypePrivateMessage, protocol.PrivateMessage{
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			Timestamp:  store.FormatTimestamp(m.Timestamp),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Conversation returns the messages between a and b, oldest first, or an
// empty list when either blocks the other. It reads only and does not use
// the loop.
func (c *Coordinator) Conversation(ctx context.Context, a, b string) ([]store.Message, error) {
	if a == "" || b == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalid)
	}
	blocked, err := c.blockedEitherWay(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if blocked {
		return []store.Message{}, nil
	}
	msgs, err := c.store.GetConversation(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("social: conversation: %w", err)
	}
	return msgs, nil
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// Block records blockerID -> blockedID and notifies both. Repeating it is
// harmless.
func (c *Coordinator) Block(ctx context.Context, blockerID, blockedID string) error {
	if err := validatePair(blockerID, blockedID); err != nil {
		return err
	}
	return c.run(ctx, "block", func(ctx context.Context) error {
		if err := c.store.AddBlock(ctx, blockerID, blockedID); err != nil {
			return fmt.Errorf("social: add block: %w", err)
		}
		c.bcast.Send([]string{blockerID, blockedID}, protocol.TypeUserBlocked, protocol.FromUser{FromUserID: blockerID})
		return nil
	})
}

// Unblock removes blockerID -> blockedID and notifies both.
func (c *Coordinator) Unblock(ctx context.Context, blockerID, blockedID string) error {
	if err := validatePair(blockerID, blockedID); err != nil {
		return err
	}
	return c.run(ctx, "unblock", func(ctx context.Context) error {
		if err := c.store.RemoveBlock(ctx, blockerID, blockedID); err != nil {
			return fmt.Errorf("social: remove block: %w", err)
		}
		c.bcast.Send([]string{blockerID, blockedID}, protocol.TypeUserUnblocked, protocol.FromUser{FromUserID: blockerID})
		return nil
	})
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

// RequestFriend writes a pending userID -> friendID edge, leaving an
// existing edge as it is, and tells the target and the requester's tabs.
func (c *Coordinator) RequestFriend(ctx context.Context, userID, friendID string) error {
	if err := validatePair(userID, friendID); err != nil {
		return err
	}
	return c.run(ctx, "friend_request", func(ctx context.Context) error {
		if err := c.store.UpsertFriendEdge(ctx, userID, friendID, store.FriendPending); err != nil {
			return fmt.Errorf("social: friend request: %w", err)
		}
		c.bcast.Send([]string{friendID}, protocol.TypeFriendRequest, protocol.FromUser{FromUserID: userID})
		c.bcast.Send([]string{userID}, protocol.TypeFriendRequestCreated, protocol.FriendRequestCreated{
			UserID:   userID,
			FriendID: friendID,
		})
		return nil
	})
}

// AcceptFriend is called by userID to accept friendID's request. Both
// directions become accepted and the requester is told.
func (c *Coordinator) AcceptFriend(ctx context.Context, userID, friendID string) error {
	if err := validatePair(userID, friendID); err != nil {
		return err
	}
	return c.run(ctx, "friend_accept", func(ctx context.Context) error {
		if err := c.store.UpsertFriendEdge(ctx, userID, friendID, store.FriendAccepted); err != nil {
			return fmt.Errorf("social: friend accept: %w", err)
		}
		if err := c.store.UpsertFriendEdge(ctx, friendID, userID, store.FriendAccepted); err != nil {
			return fmt.Errorf("social: friend accept: %w", err)
		}
		c.bcast.Send([]string{friendID}, protocol.TypeFriendAccepted, protocol.FromUser{FromUserID: userID})
		return nil
	})
}

// RemoveFriend deletes both directions between userID and friendID. It
// serves unfriend, decline and cancel alike.
func (c *Coordinator) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if err := validatePair(userID, friendID); err != nil {
		return err
	}
	return c.run(ctx, "friend_remove", func(ctx context.Context) error {
		if err := c.store.DeleteFriendEdge(ctx, userID, friendID); err != nil {
			return fmt.Errorf("social: friend remove: %w", err)
		}
		if err := c.store.DeleteFriendEdge(ctx, friendID, userID); err != nil {
			return fmt.Errorf("social: friend remove: %w", err)
		}
		c.bcast.Send([]string{friendID}, protocol.TypeFriendRemoved, protocol.FromUser{FromUserID: userID})
		return nil
	})
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

// CreateInvite opens a pending invite and notifies both users. If the pair
// already has a pending invite nothing happens and created is false.
func (c *Coordinator) CreateInvite(ctx context.Context, inviterID, inviteeID string) (created bool, err error) {
	if err := validatePair(inviterID, inviteeID); err != nil {
		return false, err
	}
	err = c.run(ctx, "invite_create", func(ctx context.Context) error {
		inv, err := c.store.GetInvite(ctx, inviterID, inviteeID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("social: invite lookup: %w", err)
		}
		if inv != nil && inv.Status == store.InvitePending {
			return errNoop
		}

		if c.throttle != nil {
			if ok, wait := c.throttle.Allow(ctx, inviterID); !ok {
				return &ThrottledError{RetryAfter: wait}
			}
		}

		if err := c.store.UpsertInvite(ctx, inviterID, inviteeID); err != nil {
			return fmt.Errorf("social: invite create: %w", err)
		}
		created = true
		c.bcast.Send([]string{inviterID, inviteeID}, protocol.TypeGameInvite, protocol.GameInvite{
			InviterID: inviterID,
			InviteeID: inviteeID,
		})
		return nil
	})
	return created, err
}

// CancelInvite deletes the invite and notifies both users.
func (c *Coordinator) CancelInvite(ctx context.Context, inviterID, inviteeID string) error {
	if err := validatePair(inviterID, inviteeID); err != nil {
		return err
	}
	return c.run(ctx, "invite_cancel", func(ctx context.Context) error {
		if err := c.store.DeleteInvite(ctx, inviterID, inviteeID); err != nil {
			return fmt.Errorf("social: invite cancel: %w", err)
		}
		c.bcast.Send([]string{inviterID, inviteeID}, protocol.TypeGameInviteCancel, protocol.GameInvite{
			InviterID: inviterID,
			InviteeID: inviteeID,
		})
		return nil
	})
}

// RespondInvite records the invitee's answer. A missing invite is updated
// best effort, which means not at all, and both users are still told.
func (c *Coordinator) RespondInvite(ctx context.Context, inviterID, inviteeID string, accepted bool) error {
	if err := validatePair(inviterID, inviteeID); err != nil {
		return err
	}
	status := store.InviteDeclined
	if accepted {
		status = store.InviteAccepted
	}
	return c.run(ctx, "invite_respond", func(ctx context.Context) error {
		if err := c.store.SetInviteStatus(ctx, inviterID, inviteeID, status); err != nil {
			return fmt.Errorf("social: invite respond: %w", err)
		}
		c.bcast.Send([]string{inviterID, inviteeID}, protocol.TypeGameInviteResponse, protocol.GameInviteResponse{
			InviterID: inviterID,
			InviteeID: inviteeID,
			Accepted:  accepted,
		})
		return nil
	})
}

// ---------------------------------------------------------------------------
// Tournament
// ---------------------------------------------------------------------------

// NotifyTournament sends tournament_update to every open connection.
func (c *Coordinator) NotifyTournament(ctx context.Context, message, status string) error {
	if message == "" {
		return fmt.Errorf("%w: missing message", ErrInvalid)
	}
	return c.run(ctx, "tournament_notify", func(ctx context.Context) error {
		c.bcast.SendAll(protocol.TypeTournamentUpdate, protocol.TournamentUpdate{Message: message, Status: status})
		return nil
	})
}
