package social

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arcade/lobby/internal/eventloop"
	"github.com/arcade/lobby/internal/mocks"
	"github.com/arcade/lobby/internal/protocol"
	"github.com/arcade/lobby/internal/store"
	"github.com/arcade/lobby/internal/store/memory"
)

type sent struct {
	users   []string
	event   string
	payload any
}

type fakeBroadcaster struct {
	calls []sent
}

func (f *fakeBroadcaster) Send(userIDs []string, event string, payload any) int {
	users := append([]string(nil), userIDs...)
	sort.Strings(users)
	f.calls = append(f.calls, sent{users: users, event: event, payload: payload})
	return len(users)
}

func (f *fakeBroadcaster) SendAll(event string, payload any) int {
	f.calls = append(f.calls, sent{users: []string{"*"}, event: event, payload: payload})
	return 1
}

func (f *fakeBroadcaster) events() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.event)
	}
	return out
}

type fakeThrottle struct {
	allow bool
	keys  []string
}

func (f *fakeThrottle) Allow(_ context.Context, key string) (bool, time.Duration) {
	f.keys = append(f.keys, key)
	if f.allow {
		return true, 0
	}
	return false, 4 * time.Second
}

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)

func newCoordinator(t *testing.T, opts ...Option) (*Coordinator, *memory.Store, *fakeBroadcaster) {
	t.Helper()
	st := memory.New()
	require.NoError(t, store.Seed(context.Background(), st))
	b := &fakeBroadcaster{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(st, b, eventloop.Inline{}, opts...), st, b
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func TestSendMessage_EchoesToBothParties(t *testing.T) {
	c, st, b := newCoordinator(t)
	ctx := context.Background()

	msg, err := c.SendMessage(ctx, "u1", "u2", "hi")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), msg.Timestamp)

	require.Len(t, b.calls, 1)
	assert.Equal(t, []string{"u1", "u2"}, b.calls[0].users)
	assert.Equal(t, protocol.TypePrivateMessage, b.calls[0].event)
	assert.Equal(t, protocol.PrivateMessage{
		SenderID:   "u1",
		ReceiverID: "u2",
		Content:    "hi",
		Timestamp:  "2024-05-06T07:08:09.123Z",
	}, b.calls[0].payload)

	history, err := st.GetConversation(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestSendMessage_BlockedEitherDirection(t *testing.T) {
	for _, blocker := range []string{"u1", "u2"} {
		c, st, b := newCoordinator(t)
		ctx := context.Background()

		_, err := c.SendMessage(ctx, "u1", "u2", "before")
		require.NoError(t, err)

		blocked := "u2"
		if blocker == "u2" {
			blocked = "u1"
		}
		require.NoError(t, c.Block(ctx, blocker, blocked))
		b.calls = nil

		_, err = c.SendMessage(ctx, "u1", "u2", "hi")
		assert.ErrorIs(t, err, ErrBlocked, "blocker=%s", blocker)
		assert.Empty(t, b.calls, "no event may leave a rejected send")

		all, err := st.GetConversation(ctx, "u1", "u2")
		require.NoError(t, err)
		assert.Len(t, all, 1, "rejected message must not be stored")

		// History is hidden from both sides while the block stands.
		for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
			hist, err := c.Conversation(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.Empty(t, hist)
			assert.NotNil(t, hist)
		}

		require.NoError(t, c.Unblock(ctx, blocker, blocked))
		hist, err := c.Conversation(ctx, "u1", "u2")
		require.NoError(t, err)
		assert.Len(t, hist, 1, "unblock restores history")
	}
}

func TestSendMessage_Validation(t *testing.T) {
	c, _, b := newCoordinator(t)
	ctx := context.Background()

	cases := []struct{ from, to, content string }{
		{"", "u2", "hi"},
		{"u1", "", "hi"},
		{"u1", "u2", ""},
		{"u1", "u1", "hi"},
		{"u1", "u2", string(make([]rune, MaxTextChars+1))},
		{"u1", "u2", string([]byte{0xff, 0xfe})},
	}
	for _, tc := range cases {
		_, err := c.SendMessage(ctx, tc.from, tc.to, tc.content)
		assert.ErrorIs(t, err, ErrInvalid)
	}
	assert.Empty(t, b.calls)
}

func TestValidateContent_ByteAndCharacterLimits(t *testing.T) {
	assert.NoError(t, ValidateContent(strings.Repeat("a", MaxTextChars)))
	// 1365 three-byte runes stay under both limits.
	assert.NoError(t, ValidateContent(strings.Repeat("€", MaxMessageBytes/3)))

	err := ValidateContent(strings.Repeat("€", MaxMessageBytes/3+1))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "byte limit")

	err = ValidateContent(strings.Repeat("a", MaxTextChars+1))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "character limit")
}

func TestSendMessage_PersistenceFailureNotBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	b := &fakeBroadcaster{}
	c := New(st, b, eventloop.Inline{})
	dbErr := errors.New("disk full")

	st.EXPECT().BlockExists(gomock.Any(), "u1", "u2").Return(false, nil)
	st.EXPECT().BlockExists(gomock.Any(), "u2", "u1").Return(false, nil)
	st.EXPECT().InsertMessage(gomock.Any(), gomock.Any()).Return(dbErr)

	_, err := c.SendMessage(context.Background(), "u1", "u2", "hi")
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrBlocked)
	assert.Empty(t, b.calls)
}

func TestConversation_BlockCheckFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	c := New(st, &fakeBroadcaster{}, eventloop.Inline{})

	st.EXPECT().BlockExists(gomock.Any(), "u1", "u2").Return(false, errors.New("timeout"))

	_, err := c.Conversation(context.Background(), "u1", "u2")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

func TestBlock_IdempotentAndNotifiesBoth(t *testing.T) {
	c, st, b := newCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.Block(ctx, "u1", "u2"))
	require.NoError(t, c.Block(ctx, "u1", "u2"))

	lists, err := st.ListBlocks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, lists.Blocked)

	require.Len(t, b.calls, 2)
	assert.Equal(t, []string{"u1", "u2"}, b.calls[0].users)
	assert.Equal(t, protocol.FromUser{FromUserID: "u1"}, b.calls[0].payload)

	require.NoError(t, c.Unblock(ctx, "u1", "u2"))
	require.NoError(t, c.Unblock(ctx, "u1", "u2"))
	assert.Equal(t, protocol.TypeUserUnblocked, b.calls[3].event)
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

func TestFriendLifecycle(t *testing.T) {
	c, st, b := newCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.RequestFriend(ctx, "u1", "u2"))
	assert.Equal(t, []string{protocol.TypeFriendRequest, protocol.TypeFriendRequestCreated}, b.events())
	assert.Equal(t, []string{"u2"}, b.calls[0].users)
	assert.Equal(t, []string{"u1"}, b.calls[1].users)
	assert.Equal(t, protocol.FriendRequestCreated{UserID: "u1", FriendID: "u2"}, b.calls[1].payload)

	incoming, err := st.ListFriends(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, incoming.Incoming, 1)
	assert.Equal(t, "u1", incoming.Incoming[0].ID)

	b.calls = nil
	require.NoError(t, c.AcceptFriend(ctx, "u2", "u1"))
	require.Len(t, b.calls, 1)
	assert.Equal(t, []string{"u1"}, b.calls[0].users)
	assert.Equal(t, protocol.FromUser{FromUserID: "u2"}, b.calls[0].payload)

	for _, u := range []string{"u1", "u2"} {
		lists, err := st.ListFriends(ctx, u)
		require.NoError(t, err)
		assert.Len(t, lists.Accepted, 1, u)
		assert.Empty(t, lists.Incoming, u)
		assert.Empty(t, lists.Outgoing, u)
	}

	// A late duplicate request must not downgrade the friendship.
	require.NoError(t, c.RequestFriend(ctx, "u1", "u2"))
	lists, err := st.ListFriends(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lists.Accepted, 1)

	// Removal from the other side deletes both directions.
	b.calls = nil
	require.NoError(t, c.RemoveFriend(ctx, "u1", "u2"))
	assert.Equal(t, []string{"u2"}, b.calls[0].users)
	for _, u := range []string{"u1", "u2"} {
		lists, err := st.ListFriends(ctx, u)
		require.NoError(t, err)
		assert.Empty(t, lists.Accepted, u)
	}

	// Removing a missing edge is still success.
	require.NoError(t, c.RemoveFriend(ctx, "u1", "u2"))
}

func TestAcceptFriend_FailureSkipsEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	b := &fakeBroadcaster{}
	c := New(st, b, eventloop.Inline{})

	gomock.InOrder(
		st.EXPECT().UpsertFriendEdge(gomock.Any(), "u2", "u1", store.FriendAccepted).Return(nil),
		st.EXPECT().UpsertFriendEdge(gomock.Any(), "u1", "u2", store.FriendAccepted).Return(errors.New("conn reset")),
	)

	assert.Error(t, c.AcceptFriend(context.Background(), "u2", "u1"))
	assert.Empty(t, b.calls)
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

func TestInvite_DuplicatePendingIsNoop(t *testing.T) {
	c, st, b := newCoordinator(t)
	ctx := context.Background()

	created, err := c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, []string{protocol.TypeGameInvite}, b.events())
	assert.Equal(t, []string{"u1", "u2"}, b.calls[0].users)

	lists, err := st.ListInvites(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, lists.Outgoing)
}

func TestInvite_AcceptFlow(t *testing.T) {
	c, st, b := newCoordinator(t)
	ctx := context.Background()

	_, err := c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	require.NoError(t, c.RespondInvite(ctx, "u1", "u2", true))

	require.Len(t, b.calls, 2)
	assert.Equal(t, protocol.TypeGameInviteResponse, b.calls[1].event)
	assert.Equal(t, []string{"u1", "u2"}, b.calls[1].users)
	assert.Equal(t, protocol.GameInviteResponse{InviterID: "u1", InviteeID: "u2", Accepted: true}, b.calls[1].payload)

	inv, err := st.GetInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, store.InviteAccepted, inv.Status)

	// Answered invites no longer show up, and re-inviting reopens the edge.
	lists, err := st.ListInvites(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, lists.Incoming)

	created, err := c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, created)
	inv, err = st.GetInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, store.InvitePending, inv.Status)
}

func TestInvite_RespondToMissingIsTolerated(t *testing.T) {
	c, _, b := newCoordinator(t)
	require.NoError(t, c.RespondInvite(context.Background(), "u3", "u4", false))
	require.Len(t, b.calls, 1)
	assert.Equal(t, protocol.GameInviteResponse{InviterID: "u3", InviteeID: "u4"}, b.calls[0].payload)
}

func TestInvite_Cancel(t *testing.T) {
	c, st, b := newCoordinator(t)
	ctx := context.Background()

	_, err := c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	require.NoError(t, c.CancelInvite(ctx, "u1", "u2"))

	assert.Equal(t, []string{protocol.TypeGameInvite, protocol.TypeGameInviteCancel}, b.events())
	_, err = st.GetInvite(ctx, "u1", "u2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvite_Throttled(t *testing.T) {
	th := &fakeThrottle{allow: false}
	c, st, b := newCoordinator(t, WithThrottle(th))
	ctx := context.Background()

	_, err := c.CreateInvite(ctx, "u1", "u2")
	require.ErrorIs(t, err, ErrThrottled)
	var te *ThrottledError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 4*time.Second, te.RetryAfter)
	assert.Equal(t, []string{"u1"}, th.keys)
	assert.Empty(t, b.calls)

	_, err = st.GetInvite(ctx, "u1", "u2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvite_DuplicateDoesNotConsumeCooldown(t *testing.T) {
	th := &fakeThrottle{allow: true}
	c, _, _ := newCoordinator(t, WithThrottle(th))
	ctx := context.Background()

	_, err := c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = c.CreateInvite(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Len(t, th.keys, 1)
}

func TestInvite_SelfTargetRejected(t *testing.T) {
	c, _, b := newCoordinator(t)
	_, err := c.CreateInvite(context.Background(), "u1", "u1")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Empty(t, b.calls)
}

// ---------------------------------------------------------------------------
// Tournament
// ---------------------------------------------------------------------------

func TestNotifyTournament(t *testing.T) {
	c, _, b := newCoordinator(t)
	require.NoError(t, c.NotifyTournament(context.Background(), "Round 2", "started"))
	require.Len(t, b.calls, 1)
	assert.Equal(t, []string{"*"}, b.calls[0].users)
	assert.Equal(t, protocol.TournamentUpdate{Message: "Round 2", Status: "started"}, b.calls[0].payload)

	assert.ErrorIs(t, c.NotifyTournament(context.Background(), "", "x"), ErrInvalid)
}

// ---------------------------------------------------------------------------
// Loop integration
// ---------------------------------------------------------------------------

func TestCoordinator_RunsOnLoop(t *testing.T) {
	loop := eventloop.New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	st := memory.New()
	b := &fakeBroadcaster{}
	c := New(st, b, loop)

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := c.CreateInvite(ctx, "u1", "u2")
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}

	// Only one of the racing creates may announce the invite.
	var events []string
	require.NoError(t, loop.Do(ctx, func(context.Context) error {
		events = b.events()
		return nil
	}))
	assert.Equal(t, []string{protocol.TypeGameInvite}, events)
}
