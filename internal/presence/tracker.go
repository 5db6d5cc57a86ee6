package presence

import (
	"sort"

	"github.com/arcade/lobby/internal/protocol"
)

// Tracker is the policy layer over a Registry.
type Tracker struct {
	reg *Registry
}

// NewTracker wraps reg.
func NewTracker(reg *Registry) *Tracker {
	return &Tracker{reg: reg}
}

// Registry returns the underlying registry.
func (t *Tracker) Registry() *Registry { return t.reg }

// IsOnline reports whether userID has at least one live connection.
func (t *Tracker) IsOnline(userID string) bool {
	return len(t.reg.byUser[userID]) > 0
}

// ConnectionCount returns the number of live connections of userID.
func (t *Tracker) ConnectionCount(userID string) int {
	return len(t.reg.byUser[userID])
}

// OnlineCount is the number of distinct online users.
func (t *Tracker) OnlineCount() int { return t.reg.Users() }

// Snapshot returns one record per online user. When a user has several
// connections the most recently bound one supplies the display fields.
// The result is sorted by user id and never nil.
func (t *Tracker) Snapshot() []protocol.OnlineUser {
	latest := make(map[string]Entry, t.reg.Users())
	for _, e := range t.reg.entries {
		if cur, ok := latest[e.UserID]; !ok || e.seq > cur.seq {
			latest[e.UserID] = e
		}
	}

	out := make([]protocol.OnlineUser, 0, len(latest))
	for _, e := range latest {
		out = append(out, protocol.OnlineUser{
			UserID:   e.UserID,
			Username: e.Username,
			Avatar:   e.Avatar,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
