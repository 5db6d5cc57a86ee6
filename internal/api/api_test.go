package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arcade/lobby/internal/eventloop"
	"github.com/arcade/lobby/internal/fanout"
	"github.com/arcade/lobby/internal/mocks"
	"github.com/arcade/lobby/internal/presence"
	"github.com/arcade/lobby/internal/social"
	"github.com/arcade/lobby/internal/store"
	"github.com/arcade/lobby/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recorder collects every frame type written per handle.
type recorder struct {
	mu     sync.Mutex
	frames map[string][]string
}

func (r *recorder) SendMessage(handle string, data []byte) error {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	r.mu.Lock()
	r.frames[handle] = append(r.frames[handle], env.Type)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Broadcast(data []byte) int {
	r.mu.Lock()
	handles := make([]string, 0, len(r.frames))
	for h := range r.frames {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		_ = r.SendMessage(h, data)
	}
	return len(handles)
}

func (r *recorder) types(handle string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames[handle]...)
}

type fakeThrottle struct{ allow bool }

func (f fakeThrottle) Allow(context.Context, string) (bool, time.Duration) {
	return f.allow, 1500 * time.Millisecond
}

type harness struct {
	router *gin.Engine
	store  *memory.Store
	wire   *recorder
}

// newHarness seeds the demo users and binds one connection per user id
// given, with handle "h-<id>".
func newHarness(t *testing.T, online []string, opts ...social.Option) *harness {
	t.Helper()
	st := memory.New()
	require.NoError(t, store.Seed(context.Background(), st))

	reg := presence.NewRegistry()
	wire := &recorder{frames: map[string][]string{}}
	for _, id := range online {
		reg.Bind("h-"+id, presence.Identity{UserID: id})
		wire.frames["h-"+id] = nil
	}
	coord := social.New(st, fanout.New(reg, wire), eventloop.Inline{}, opts...)
	return &harness{router: New(st, coord).Router(), store: st, wire: wire}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestListUsers_ReturnsSeed(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	users := decode(t, rec)["users"].([]any)
	assert.Len(t, users, len(store.SeedUsers))
	assert.Equal(t, "Alice", users[0].(map[string]any)["username"])
}

func TestCreateUser_GetOrCreate(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/users", gin.H{"username": "Frank"})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)
	assert.NotContains(t, user, "user")
	assert.True(t, strings.HasPrefix(user["id"].(string), "user-"))
	assert.Equal(t, "Frank", user["username"])
	assert.Equal(t, store.DefaultAvatar, user["avatar"])

	again := decode(t, h.do(http.MethodPost, "/api/users", gin.H{"username": "Frank", "avatar": "🐸"}))
	assert.Equal(t, user["id"], again["id"])
	assert.Equal(t, store.DefaultAvatar, again["avatar"])
}

func TestCreateUser_ExistingSeedUserIsFlat(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/users", gin.H{"username": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "u1", body["id"])
	assert.Equal(t, "Alice", body["username"])
	assert.Equal(t, "👩", body["avatar"])
}

func TestCreateUser_MissingUsername(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/users", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing username", decode(t, rec)["error"])
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func TestSendMessage_StoresAndPushes(t *testing.T) {
	h := newHarness(t, []string{"u1", "u2"})

	rec := h.do(http.MethodPost, "/api/messages", gin.H{"senderId": "u1", "receiverId": "u2", "content": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	msg := body["message"].(map[string]any)
	assert.Regexp(t, `^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d\.\d{3}Z$`, msg["timestamp"])

	assert.Equal(t, []string{"private_message"}, h.wire.types("h-u1"))
	assert.Equal(t, []string{"private_message"}, h.wire.types("h-u2"))

	hist := decode(t, h.do(http.MethodGet, "/api/messages/u2/u1", nil))["messages"].([]any)
	require.Len(t, hist, 1)
	assert.Equal(t, "hi", hist[0].(map[string]any)["content"])
}

func TestSendMessage_MissingFields(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/messages", gin.H{"senderId": "u1", "receiverId": "u2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing fields", decode(t, rec)["error"])
}

func TestSendMessage_Blocked(t *testing.T) {
	h := newHarness(t, []string{"u1", "u2"})
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/block", gin.H{"blockerId": "u2", "blockedId": "u1"}).Code)

	rec := h.do(http.MethodPost, "/api/messages", gin.H{"senderId": "u1", "receiverId": "u2", "content": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User blocked", decode(t, rec)["error"])

	hist := decode(t, h.do(http.MethodGet, "/api/messages/u1/u2", nil))["messages"].([]any)
	assert.Empty(t, hist)
}

func TestSendMessage_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().BlockExists(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
	st.EXPECT().InsertMessage(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	reg := presence.NewRegistry()
	coord := social.New(st, fanout.New(reg, &recorder{frames: map[string][]string{}}), eventloop.Inline{})
	router := New(st, coord).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader(`{"senderId":"u1","receiverId":"u2","content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"DB insert failed"}`, rec.Body.String())
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

func TestBlocks_ListShapes(t *testing.T) {
	h := newHarness(t, []string{"u1", "u2"})
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/block", gin.H{"blockerId": "u1", "blockedId": "u2"}).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/block", gin.H{"blockerId": "u3", "blockedId": "u1"}).Code)

	rec := h.do(http.MethodGet, "/api/blocks/u1", nil)
	assert.JSONEq(t, `{"blocked":[{"blockedId":"u2"}],"blockedBy":[{"blockerId":"u3"}]}`, rec.Body.String())
	assert.Equal(t, []string{"user_blocked"}, h.wire.types("h-u2"))

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/block", gin.H{"blockerId": "u1", "blockedId": "u2"}).Code)
	rec = h.do(http.MethodGet, "/api/blocks/u2", nil)
	assert.JSONEq(t, `{"blocked":[],"blockedBy":[]}`, rec.Body.String())
}

func TestBlock_SelfIsBadRequest(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/block", gin.H{"blockerId": "u1", "blockedId": "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

func TestFriends_RequestAcceptRemove(t *testing.T) {
	h := newHarness(t, []string{"u1", "u2"})

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/friends/request", gin.H{"userId": "u1", "friendId": "u2"}).Code)
	lists := decode(t, h.do(http.MethodGet, "/api/friends/u2", nil))
	assert.Len(t, lists["incoming"], 1)
	assert.Empty(t, lists["accepted"])

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/friends/accept", gin.H{"userId": "u2", "friendId": "u1"}).Code)
	lists = decode(t, h.do(http.MethodGet, "/api/friends/u1", nil))
	accepted := lists["accepted"].([]any)
	require.Len(t, accepted, 1)
	assert.Equal(t, "Bob", accepted[0].(map[string]any)["username"])

	assert.Equal(t, []string{"friend_request_created", "friend_accepted"}, h.wire.types("h-u1"))
	assert.Equal(t, []string{"friend_request"}, h.wire.types("h-u2"))

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/friends", gin.H{"userId": "u1", "friendId": "u2"}).Code)
	lists = decode(t, h.do(http.MethodGet, "/api/friends/u2", nil))
	assert.Empty(t, lists["accepted"])
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

func TestInvites_Lifecycle(t *testing.T) {
	h := newHarness(t, []string{"u1", "u2"})

	rec := h.do(http.MethodPost, "/api/invite", gin.H{"inviterId": "u1", "inviteeId": "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["created"])

	// A duplicate while pending changes nothing.
	rec = h.do(http.MethodPost, "/api/invite", gin.H{"inviterId": "u1", "inviteeId": "u2"})
	assert.Equal(t, false, decode(t, rec)["created"])
	assert.Equal(t, []string{"game_invite"}, h.wire.types("h-u2"))

	assert.JSONEq(t, `{"incoming":[{"userId":"u1"}]}`, h.do(http.MethodGet, "/api/invite/incoming/u2", nil).Body.String())
	assert.JSONEq(t, `{"outgoing":[{"userId":"u2"}]}`, h.do(http.MethodGet, "/api/invite/outgoing/u1", nil).Body.String())

	rec = h.do(http.MethodPost, "/api/invite/response", gin.H{"inviterId": "u1", "inviteeId": "u2", "accepted": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"incoming":[]}`, h.do(http.MethodGet, "/api/invite/incoming/u2", nil).Body.String())
	assert.Equal(t, []string{"game_invite", "game_invite_response"}, h.wire.types("h-u1"))
}

func TestInviteResponse_RequiresAccepted(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/invite/response", gin.H{"inviterId": "u1", "inviteeId": "u2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInviteCancel(t *testing.T) {
	h := newHarness(t, []string{"u2"})
	h.do(http.MethodPost, "/api/invite", gin.H{"inviterId": "u1", "inviteeId": "u2"})

	rec := h.do(http.MethodDelete, "/api/invite", gin.H{"inviterId": "u1", "inviteeId": "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"game_invite", "game_invite_cancel"}, h.wire.types("h-u2"))
}

func TestInvite_Throttled(t *testing.T) {
	h := newHarness(t, nil, social.WithThrottle(fakeThrottle{allow: false}))
	rec := h.do(http.MethodPost, "/api/invite", gin.H{"inviterId": "u1", "inviteeId": "u2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["retryAfter"])
}

// ---------------------------------------------------------------------------
// Matches
// ---------------------------------------------------------------------------

func TestMatches_HistoryAndStats(t *testing.T) {
	h := newHarness(t, nil)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/matches", gin.H{
		"player1Id": "u1", "player2Id": "u2", "winnerId": "u1", "score": "3-1",
	}).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/matches", gin.H{
		"player1Id": "u1", "player2Id": "u3", "matchType": "tournament", "duration": 120,
	}).Code)

	all := decode(t, h.do(http.MethodGet, "/api/matches/u1", nil))["matches"].([]any)
	require.Len(t, all, 2)
	newest := all[0].(map[string]any)
	assert.Equal(t, "tournament", newest["matchType"])
	assert.Equal(t, "Charlie", newest["player2Name"])
	assert.Nil(t, newest["winnerName"])

	regular := decode(t, h.do(http.MethodGet, "/api/matches/u1/regular", nil))["matches"].([]any)
	require.Len(t, regular, 1)
	assert.Equal(t, "Alice", regular[0].(map[string]any)["winnerName"])

	rec := h.do(http.MethodGet, "/api/matches/u1/stats", nil)
	assert.JSONEq(t, `{"stats":{"totalMatches":2,"wins":1,"draws":1,"losses":0}}`, rec.Body.String())
}

func TestCreateMatch_PassesMatchToStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().CreateMatch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *store.Match) error {
		assert.Equal(t, "u1", m.Player1ID)
		assert.Equal(t, "u2", m.Player2ID)
		m.ID = 42
		return nil
	})
	st.EXPECT().CreateMatch(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	coord := social.New(st, fanout.New(presence.NewRegistry(), &recorder{frames: map[string][]string{}}), eventloop.Inline{})
	router := New(st, coord).Router()

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/matches",
			strings.NewReader(`{"player1Id":"u1","player2Id":"u2"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"matchId":42}`, rec.Body.String())

	rec = post()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to save match"}`, rec.Body.String())
}

func TestMatches_Validation(t *testing.T) {
	h := newHarness(t, nil)
	cases := []gin.H{
		{"player1Id": "u1"},
		{"player1Id": "u1", "player2Id": "u1"},
		{"player1Id": "u1", "player2Id": "u2", "matchType": "casual"},
		{"player1Id": "u1", "player2Id": "u2", "winnerId": "u9"},
	}
	for _, body := range cases {
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/matches", body).Code, "%v", body)
	}
}

// ---------------------------------------------------------------------------
// Tournament and routing
// ---------------------------------------------------------------------------

func TestTournamentNotify_BroadcastsToAll(t *testing.T) {
	h := newHarness(t, []string{"u1", "u2"})
	rec := h.do(http.MethodPost, "/api/tournament/notify", gin.H{"message": "Round 2", "status": "started"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tournament_update"}, h.wire.types("h-u1"))
	assert.Equal(t, []string{"tournament_update"}, h.wire.types("h-u2"))

	rec = h.do(http.MethodPost, "/api/tournament/notify", gin.H{"status": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing message", decode(t, rec)["error"])
	assert.Equal(t, []string{"tournament_update"}, h.wire.types("h-u1"), "rejected notice is not broadcast")
}

func TestUnknownAPIPath(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	router := New(memory.New(), nil, WithStaticDir(dir)).Router()

	for path, want := range map[string]string{
		"/app.js":       "console.log(1)",
		"/lobby/room/3": "<html>spa</html>",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
