// Package store defines the persistence contract of the lobby: users,
// direct messages, and the block, friend, and invite edges between users,
// plus the match history kept for the game client. Implementations live in
// the postgres and memory subpackages.
package store

//go:generate mockgen -destination=../mocks/mock_store.go -package=mocks github.com/arcade/lobby/internal/store Store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a keyed lookup has no matching row.
var ErrNotFound = errors.New("store: not found")

// DefaultAvatar is stored for users created without an avatar.
const DefaultAvatar = "👤"

// FriendStatus is the state of one directed friend edge.
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// InviteStatus is the state of one directed game invite edge.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Match types recorded in the history table.
const (
	MatchRegular    = "regular"
	MatchTournament = "tournament"
)

// User is a registered lobby user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Online   bool   `json:"online"`
}

// Profile is the public part of a user as returned in relationship lists.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// TimestampLayout renders message times as ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Message is one immutable direct message.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// MarshalJSON keeps the timestamp in the same format as the live event.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return json.Marshal(struct {
		plain
		Timestamp string `json:"timestamp"`
	}{plain(m), FormatTimestamp(m.Timestamp)})
}

// BlockLists holds both directions of a user's block edges.
type BlockLists struct {
	Blocked   []string // users this user blocks
	BlockedBy []string // users blocking this user
}

// FriendLists splits a user's friend edges by status and direction.
type FriendLists struct {
	Accepted []Profile
	Incoming []Profile // pending requests addressed to the user
	Outgoing []Profile // pending requests the user sent
}

// Invite is a directed game invite edge.
type Invite struct {
	InviterID string
	InviteeID string
	Status    InviteStatus
	CreatedAt time.Time
}

// InviteLists holds the counterpart ids of a user's pending invites.
type InviteLists struct {
	Incoming []string // inviter ids
	Outgoing []string // invitee ids
}

// Match is one finished game between two players. WinnerID is nil for a
// draw; the name and avatar fields are filled on reads only.
type Match struct {
	ID            int64     `json:"id"`
	Player1ID     string    `json:"player1Id"`
	Player2ID     string    `json:"player2Id"`
	WinnerID      *string   `json:"winnerId"`
	Score         *string   `json:"score"`
	MatchType     string    `json:"matchType"`
	GameType      string    `json:"gameType"`
	Duration      *int      `json:"duration"`
	CreatedAt     time.Time `json:"createdAt"`
	Player1Name   string    `json:"player1Name"`
	Player1Avatar string    `json:"player1Avatar"`
	Player2Name   string    `json:"player2Name"`
	Player2Avatar string    `json:"player2Avatar"`
	WinnerName    *string   `json:"winnerName"`
}

// MatchStats aggregates a player's history.
type MatchStats struct {
	TotalMatches int `json:"totalMatches"`
	Wins         int `json:"wins"`
	Draws        int `json:"draws"`
	Losses       int `json:"losses"`
}

// Store is the persistence collaborator. Every mutation is idempotent on
// conflict: duplicate inserts and deletes of missing rows succeed without
// effect. No method spans a transaction across calls.
type Store interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, u User) error
	SetOnline(ctx context.Context, userID string, online bool) error

	InsertMessage(ctx context.Context, m *Message) error
	GetConversation(ctx context.Context, a, b string) ([]Message, error)

	BlockExists(ctx context.Context, blockerID, blockedID string) (bool, error)
	AddBlock(ctx context.Context, blockerID, blockedID string) error
	RemoveBlock(ctx context.Context, blockerID, blockedID string) error
	ListBlocks(ctx context.Context, userID string) (BlockLists, error)

	// UpsertFriendEdge writes the directed edge userID -> friendID. A pending
	// write never downgrades an existing edge; an accepted write always wins.
	UpsertFriendEdge(ctx context.Context, userID, friendID string, status FriendStatus) error
	DeleteFriendEdge(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) (FriendLists, error)

	GetInvite(ctx context.Context, inviterID, inviteeID string) (*Invite, error)
	// UpsertInvite creates the edge as pending, or resets an answered edge
	// back to pending. A pending edge is left untouched.
	UpsertInvite(ctx context.Context, inviterID, inviteeID string) error
	DeleteInvite(ctx context.Context, inviterID, inviteeID string) error
	// SetInviteStatus updates the edge if present; a missing edge is not an error.
	SetInviteStatus(ctx context.Context, inviterID, inviteeID string, status InviteStatus) error
	ListInvites(ctx context.Context, userID string) (InviteLists, error)

	CreateMatch(ctx context.Context, m *Match) error
	// ListMatches returns a player's matches newest first. An empty matchType
	// returns every type.
	ListMatches(ctx context.Context, userID, matchType string) ([]Match, error)
	MatchStats(ctx context.Context, userID string) (MatchStats, error)

	Close() error
}

// SeedUsers are the demo accounts inserted on first start.
var SeedUsers = []User{
	{ID: "u1", Username: "Alice", Avatar: "👩"},
	{ID: "u2", Username: "Bob", Avatar: "👨"},
	{ID: "u3", Username: "Charlie", Avatar: "🧑"},
	{ID: "u4", Username: "Diana", Avatar: "👩‍🦰"},
	{ID: "u5", Username: "Eve", Avatar: "👱‍♀️"},
}

// Seed inserts every seed user that does not exist yet.
func Seed(ctx context.Context, s Store) error {
	for _, u := range SeedUsers {
		_, err := s.GetUser(ctx, u.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.CreateUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
