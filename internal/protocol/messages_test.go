package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing a valid user_join event
// ---------------------------------------------------------------------------

func TestParseClientMessage_UserJoin(t *testing.T) {
	input := []byte(`{"type":"user_join","data":{"userId":"u1","username":"Alice","avatar":"👩"}}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeUserJoin {
		t.Fatalf("expected type %q, got %q", TypeUserJoin, msgType)
	}

	j, ok := msg.(UserJoin)
	if !ok {
		t.Fatalf("expected UserJoin, got %T", msg)
	}
	if j.UserID != "u1" || j.Username != "Alice" || j.Avatar != "👩" {
		t.Errorf("unexpected payload: %+v", j)
	}
}

// ---------------------------------------------------------------------------
// Test: game_invite and game_invite_cancel share one payload type
// ---------------------------------------------------------------------------

func TestParseClientMessage_GameInviteVariants(t *testing.T) {
	for _, typ := range []string{TypeGameInvite, TypeGameInviteCancel} {
		input := []byte(`{"type":"` + typ + `","data":{"inviterId":"u1","inviteeId":"u2"}}`)
		msgType, msg, err := ParseClientMessage(input)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", typ, err)
		}
		if msgType != typ {
			t.Fatalf("expected type %q, got %q", typ, msgType)
		}
		gi, ok := msg.(GameInvite)
		if !ok {
			t.Fatalf("expected GameInvite, got %T", msg)
		}
		if gi.InviterID != "u1" || gi.InviteeID != "u2" {
			t.Errorf("unexpected payload: %+v", gi)
		}
	}
}

// ---------------------------------------------------------------------------
// Test: a decline (accepted=false) is a valid response
// ---------------------------------------------------------------------------

func TestParseClientMessage_GameInviteResponseDecline(t *testing.T) {
	input := []byte(`{"type":"game_invite_response","data":{"inviterId":"u1","inviteeId":"u2","accepted":false}}`)

	_, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := msg.(GameInviteResponse)
	if r.Accepted {
		t.Errorf("expected accepted=false")
	}
}

// ---------------------------------------------------------------------------
// Test: Ping needs no data
// ---------------------------------------------------------------------------

func TestParseClientMessage_Ping(t *testing.T) {
	msgType, msg, err := ParseClientMessage([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypePing {
		t.Fatalf("expected ping, got %q", msgType)
	}
	if _, ok := msg.(Ping); !ok {
		t.Fatalf("expected Ping, got %T", msg)
	}
}

// ---------------------------------------------------------------------------
// Test: Validation failures are ErrInvalidPayload
// ---------------------------------------------------------------------------

func TestParseClientMessage_InvalidPayload(t *testing.T) {
	cases := map[string]string{
		"missing data":     `{"type":"user_join"}`,
		"null data":        `{"type":"user_leave","data":null}`,
		"missing username": `{"type":"user_join","data":{"userId":"u1"}}`,
		"empty user id":    `{"type":"user_leave","data":{"userId":""}}`,
		"self invite":      `{"type":"game_invite","data":{"inviterId":"u1","inviteeId":"u1"}}`,
		"wrong field type": `{"type":"game_invite_response","data":{"inviterId":"u1","inviteeId":"u2","accepted":"yes"}}`,
	}
	for name, input := range cases {
		_, _, err := ParseClientMessage([]byte(input))
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("%s: expected ErrInvalidPayload, got %v", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Test: Unknown and server-only types
// ---------------------------------------------------------------------------

func TestParseClientMessage_UnknownType(t *testing.T) {
	for _, typ := range []string{"definitely_not_real", TypeOnlineUsers, TypePrivateMessage} {
		msgType, _, err := ParseClientMessage([]byte(`{"type":"` + typ + `","data":{}}`))
		if !errors.Is(err, ErrUnknownType) {
			t.Errorf("%s: expected ErrUnknownType, got %v", typ, err)
		}
		if msgType != typ {
			t.Errorf("expected type %q echoed back, got %q", typ, msgType)
		}
	}
}

// ---------------------------------------------------------------------------
// Test: Malformed envelopes
// ---------------------------------------------------------------------------

func TestParseClientMessage_Malformed(t *testing.T) {
	for _, input := range []string{`not json`, `{}`, `{"type":""}`, `[1,2]`} {
		_, _, err := ParseClientMessage([]byte(input))
		if err == nil {
			t.Errorf("%q: expected error", input)
			continue
		}
		if errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrUnknownType) {
			t.Errorf("%q: malformed envelope reported as %v", input, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Test: Outbound frames keep the payload byte shape
// ---------------------------------------------------------------------------

func TestNewServerMessage_PrivateMessage(t *testing.T) {
	data, err := NewServerMessage(TypePrivateMessage, PrivateMessage{
		SenderID:   "u1",
		ReceiverID: "u2",
		Content:    "hi",
		Timestamp:  "2024-01-02T03:04:05.006Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"type":"private_message","data":{"senderId":"u1","receiverId":"u2","content":"hi","timestamp":"2024-01-02T03:04:05.006Z"}}`
	if string(data) != want {
		t.Fatalf("got  %s\nwant %s", data, want)
	}
}

func TestNewServerMessage_OnlineUsersArray(t *testing.T) {
	data, err := NewServerMessage(TypeOnlineUsers, []OnlineUser{
		{UserID: "u1", Username: "Alice", Avatar: "👩"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env struct {
		Type string       `json:"type"`
		Data []OnlineUser `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if env.Type != TypeOnlineUsers {
		t.Errorf("expected type %q, got %q", TypeOnlineUsers, env.Type)
	}
	if len(env.Data) != 1 || env.Data[0].UserID != "u1" {
		t.Errorf("unexpected data: %+v", env.Data)
	}
}

func TestNewServerMessage_EmptyOnlineUsers(t *testing.T) {
	data, err := NewServerMessage(TypeOnlineUsers, []OnlineUser{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"type":"online_users","data":[]}` {
		t.Errorf("unexpected frame %s", data)
	}
}

func TestNewServerMessage_Pong(t *testing.T) {
	data, err := NewServerMessage(TypePong, PongMsg{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"type":"pong","data":{}}` {
		t.Errorf("unexpected frame %s", data)
	}
}

func TestNewServerMessage_Unmarshalable(t *testing.T) {
	if _, err := NewServerMessage(TypeError, make(chan int)); err == nil {
		t.Fatal("expected error for unmarshalable payload")
	}
}
