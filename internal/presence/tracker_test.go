package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/arcade/lobby/internal/protocol"
)

func TestTracker_IsOnline(t *testing.T) {
	r := NewRegistry()
	tr := NewTracker(r)

	assert.False(t, tr.IsOnline("u1"))
	r.Bind("h1", Identity{UserID: "u1"})
	r.Bind("h2", Identity{UserID: "u1"})
	assert.True(t, tr.IsOnline("u1"))
	assert.Equal(t, 2, tr.ConnectionCount("u1"))

	r.Unbind("h1")
	assert.True(t, tr.IsOnline("u1"))
	r.Unbind("h2")
	assert.False(t, tr.IsOnline("u1"))
}

func TestSnapshot_CollapsesUsersLastBindWins(t *testing.T) {
	r := NewRegistry()
	tr := NewTracker(r)
	r.Bind("h1", Identity{UserID: "u2", Username: "Bob", Avatar: "👨"})
	r.Bind("h2", Identity{UserID: "u1", Username: "Alice", Avatar: "👩"})
	r.Bind("h3", Identity{UserID: "u1", Username: "Alice2", Avatar: "🧑"})

	assert.Equal(t, []protocol.OnlineUser{
		{UserID: "u1", Username: "Alice2", Avatar: "🧑"},
		{UserID: "u2", Username: "Bob", Avatar: "👨"},
	}, tr.Snapshot())
	assert.Equal(t, 2, tr.OnlineCount())

	// Dropping the newest tab falls back to the remaining one.
	r.Unbind("h3")
	assert.Equal(t, "Alice", tr.Snapshot()[0].Username)
}

func TestSnapshot_EmptyIsNotNil(t *testing.T) {
	snap := NewTracker(NewRegistry()).Snapshot()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}

// Every snapshot holds each bound user exactly once and nothing else.
func TestSnapshot_OneRecordPerOnlineUser(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		tr := NewTracker(r)
		binds := rapid.SliceOf(rapid.SampledFrom([]string{"u1", "u2", "u3", "u4"})).Draw(t, "binds")
		for i, u := range binds {
			r.Bind(string(rune('a'+i%26))+u, Identity{UserID: u, Username: u})
		}

		snap := tr.Snapshot()
		seen := map[string]bool{}
		for _, o := range snap {
			if seen[o.UserID] {
				t.Fatalf("duplicate %s in %v", o.UserID, snap)
			}
			seen[o.UserID] = true
			if !tr.IsOnline(o.UserID) {
				t.Fatalf("offline user %s in snapshot", o.UserID)
			}
		}
		if len(seen) != tr.OnlineCount() {
			t.Fatalf("snapshot has %d users, tracker reports %d", len(seen), tr.OnlineCount())
		}
	})
}
