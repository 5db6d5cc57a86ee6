// Package protocol defines the push-channel events exchanged between the
// lobby and its clients. Every frame is a JSON envelope
// {"type": <event>, "data": <payload>} in both directions; the payload
// shapes below are the public contract and must not drift.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ---------------------------------------------------------------------------
// Event names
// ---------------------------------------------------------------------------

// Client -> Server event types.
const (
	TypeUserJoin           = "user_join"
	TypeUserLeave          = "user_leave"
	TypeGameInvite         = "game_invite"
	TypeGameInviteCancel   = "game_invite_cancel"
	TypeGameInviteResponse = "game_invite_response"
	TypePing               = "ping"
)

// Server -> Client event types. The three game_invite* names are shared
// with the inbound side.
const (
	TypeOnlineUsers          = "online_users"
	TypeUserOffline          = "user_offline"
	TypePrivateMessage       = "private_message"
	TypeUserBlocked          = "user_blocked"
	TypeUserUnblocked        = "user_unblocked"
	TypeFriendRequest        = "friend_request"
	TypeFriendRequestCreated = "friend_request_created"
	TypeFriendAccepted       = "friend_accepted"
	TypeFriendRemoved        = "friend_removed"
	TypeTournamentUpdate     = "tournament_update"
	TypeRateLimited          = "rate_limited"
	TypeError                = "error"
	TypePong                 = "pong"
)

// Error codes carried by ErrorMsg.
const (
	CodeParseError      = "parse_error"
	CodeUnsupportedType = "unsupported_type"
	CodeInvalidPayload  = "invalid_payload"
	CodeBlocked         = "blocked"
	CodeInternal        = "internal"
)

// ErrInvalidPayload wraps every decode or validation failure of a known
// event type, so callers can tell it apart from a malformed envelope.
var ErrInvalidPayload = errors.New("protocol: invalid payload")

// ErrUnknownType is returned for event types clients may not send.
var ErrUnknownType = errors.New("protocol: unknown client message type")

var validate = validator.New()

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope is the outer frame. Data is kept raw until the type is known.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ---------------------------------------------------------------------------
// Client -> Server payloads
// ---------------------------------------------------------------------------

// UserJoin binds the sending connection to a user identity.
type UserJoin struct {
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required"`
	Avatar   string `json:"avatar"`
}

// UserLeave is an explicit logout of every connection of the user.
type UserLeave struct {
	UserID string `json:"userId" validate:"required"`
}

// GameInvite is used for both game_invite and game_invite_cancel, inbound
// and outbound.
type GameInvite struct {
	InviterID string `json:"inviterId" validate:"required"`
	InviteeID string `json:"inviteeId" validate:"required,nefield=InviterID"`
}

// GameInviteResponse answers a pending invite. Accepted has no validation
// tag: false is a legitimate decline.
type GameInviteResponse struct {
	InviterID string `json:"inviterId" validate:"required"`
	InviteeID string `json:"inviteeId" validate:"required,nefield=InviterID"`
	Accepted  bool   `json:"accepted"`
}

// Ping is a client keepalive.
type Ping struct{}

// ---------------------------------------------------------------------------
// Server -> Client payloads
// ---------------------------------------------------------------------------

// OnlineUser is one element of the online_users array.
type OnlineUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// UserOffline tells peers a user has no live connection left.
type UserOffline struct {
	UserID string `json:"userId"`
}

// PrivateMessage is the live copy of a stored direct message. Timestamp is
// ISO-8601 UTC with millisecond precision.
type PrivateMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// FromUser is the payload of user_blocked, user_unblocked, friend_request,
// friend_accepted and friend_removed.
type FromUser struct {
	FromUserID string `json:"fromUserId"`
}

// FriendRequestCreated confirms a request to the requester's own tabs.
type FriendRequestCreated struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

// TournamentUpdate is broadcast to every connection.
type TournamentUpdate struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// RateLimitedMsg is sent when the invite cooldown rejects a request.
type RateLimitedMsg struct {
	RetryAfter int `json:"retryAfter"`
}

// ErrorMsg reports a rejected frame to its sender only.
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg answers a client ping.
type PongMsg struct{}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage decodes one inbound frame into its typed payload and
// validates it. A malformed envelope returns an error that is not
// ErrInvalidPayload; an unknown type returns ErrUnknownType together with
// the type name.
func ParseClientMessage(data []byte) (string, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}
	if env.Type == "" {
		return "", nil, errors.New("protocol: missing or empty \"type\" field")
	}

	var msg any
	switch env.Type {
	case TypeUserJoin:
		msg = &UserJoin{}
	case TypeUserLeave:
		msg = &UserLeave{}
	case TypeGameInvite, TypeGameInviteCancel:
		msg = &GameInvite{}
	case TypeGameInviteResponse:
		msg = &GameInviteResponse{}
	case TypePing:
		return env.Type, Ping{}, nil
	default:
		return env.Type, nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return env.Type, nil, fmt.Errorf("%w: %q has no data", ErrInvalidPayload, env.Type)
	}
	if err := json.Unmarshal(env.Data, msg); err != nil {
		return env.Type, nil, fmt.Errorf("%w: decode %q: %v", ErrInvalidPayload, env.Type, err)
	}
	if err := validate.Struct(msg); err != nil {
		return env.Type, nil, fmt.Errorf("%w: %q: %v", ErrInvalidPayload, env.Type, err)
	}

	// Handlers receive values, not pointers.
	switch m := msg.(type) {
	case *UserJoin:
		return env.Type, *m, nil
	case *UserLeave:
		return env.Type, *m, nil
	case *GameInvite:
		return env.Type, *m, nil
	case *GameInviteResponse:
		return env.Type, *m, nil
	}
	return env.Type, msg, nil
}

// NewServerMessage encodes an outbound frame. The payload is marshalled as
// is under "data", so slices (online_users) and structs share one path.
func NewServerMessage(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}
	out, err := json.Marshal(Envelope{Type: msgType, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
