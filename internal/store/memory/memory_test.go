package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcade/lobby/internal/store"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, store.Seed(context.Background(), s))
	return s
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestCreateUser_KeepsExistingRow(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, store.User{ID: "u1", Username: "alice"}))
	require.NoError(t, s.CreateUser(ctx, store.User{ID: "u1", Username: "other"}))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, store.DefaultAvatar, u.Avatar)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func TestConversation_BothDirectionsInOrder(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertMessage(ctx, &store.Message{SenderID: "u2", ReceiverID: "u1", Content: "second", Timestamp: base.Add(time.Second)}))
	require.NoError(t, s.InsertMessage(ctx, &store.Message{SenderID: "u1", ReceiverID: "u2", Content: "first", Timestamp: base}))
	require.NoError(t, s.InsertMessage(ctx, &store.Message{SenderID: "u1", ReceiverID: "u3", Content: "elsewhere"}))

	msgs, err := s.GetConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

// ---------------------------------------------------------------------------
// Friends and invites
// ---------------------------------------------------------------------------

func TestFriendEdge_PendingDoesNotDowngradeAccepted(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertFriendEdge(ctx, "u1", "u2", store.FriendAccepted))
	require.NoError(t, s.UpsertFriendEdge(ctx, "u1", "u2", store.FriendPending))
	require.NoError(t, s.UpsertFriendEdge(ctx, "u3", "u1", store.FriendPending))

	lists, err := s.ListFriends(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lists.Accepted, 1)
	assert.Equal(t, "u2", lists.Accepted[0].ID)
	require.Len(t, lists.Incoming, 1)
	assert.Equal(t, "u3", lists.Incoming[0].ID)
	assert.Empty(t, lists.Outgoing)
}

func TestInvite_ReopenAfterAnswer(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertInvite(ctx, "u1", "u2"))
	require.NoError(t, s.SetInviteStatus(ctx, "u1", "u2", store.InviteDeclined))

	lists, err := s.ListInvites(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, lists.Incoming)

	require.NoError(t, s.UpsertInvite(ctx, "u1", "u2"))
	inv, err := s.GetInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, store.InvitePending, inv.Status)
}

// ---------------------------------------------------------------------------
// Matches
// ---------------------------------------------------------------------------

func TestMatches_HistoryAndStats(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	winner := "u1"

	require.NoError(t, s.CreateMatch(ctx, &store.Match{Player1ID: "u1", Player2ID: "u2", WinnerID: &winner}))
	require.NoError(t, s.CreateMatch(ctx, &store.Match{Player1ID: "u2", Player2ID: "u1", MatchType: store.MatchTournament}))
	require.NoError(t, s.CreateMatch(ctx, &store.Match{Player1ID: "u3", Player2ID: "u2"}))

	all, err := s.ListMatches(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, store.MatchTournament, all[0].MatchType, "newest first")
	assert.Equal(t, "default", all[1].GameType)
	require.NotNil(t, all[1].WinnerName)

	tour, err := s.ListMatches(ctx, "u1", store.MatchTournament)
	require.NoError(t, err)
	assert.Len(t, tour, 1)

	st, err := s.MatchStats(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, store.MatchStats{TotalMatches: 3, Wins: 0, Losses: 1, Draws: 2}, st)
}
