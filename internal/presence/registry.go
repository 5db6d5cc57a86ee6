// Package presence maps live connection handles to user identities and
// answers who is online. Registry and Tracker hold no locks: they are owned
// by the event loop and must only be touched from jobs running on it.
package presence

import (
	"github.com/samber/lo"
)

// Identity is the user a connection claims on join.
type Identity struct {
	UserID   string
	Username string
	Avatar   string
}

// Entry is one live binding of a connection handle to an identity.
type Entry struct {
	Handle string
	Identity
	seq uint64 // bind order, newest wins for display fields
}

// Registry holds at most one entry per handle and any number per user.
type Registry struct {
	entries map[string]Entry               // handle -> entry
	byUser  map[string]map[string]struct{} // user id -> handles
	seq     uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		byUser:  make(map[string]map[string]struct{}),
	}
}

// Bind attaches handle to id, replacing any earlier binding of the same
// handle. It returns the replaced entry, if any.
func (r *Registry) Bind(handle string, id Identity) (Entry, bool) {
	prev, had := r.Unbind(handle)

	r.seq++
	r.entries[handle] = Entry{Handle: handle, Identity: id, seq: r.seq}
	set := r.byUser[id.UserID]
	if set == nil {
		set = make(map[string]struct{})
		r.byUser[id.UserID] = set
	}
	set[handle] = struct{}{}
	return prev, had
}

// Unbind removes the entry for handle. Unknown handles are ignored.
func (r *Registry) Unbind(handle string) (Entry, bool) {
	e, ok := r.entries[handle]
	if !ok {
		return Entry{}, false
	}
	delete(r.entries, handle)
	if set := r.byUser[e.UserID]; set != nil {
		delete(set, handle)
		if len(set) == 0 {
			delete(r.byUser, e.UserID)
		}
	}
	return e, true
}

// UnbindAllForUser removes every entry of userID and returns them.
func (r *Registry) UnbindAllForUser(userID string) []Entry {
	set := r.byUser[userID]
	removed := make([]Entry, 0, len(set))
	for handle := range set {
		removed = append(removed, r.entries[handle])
		delete(r.entries, handle)
	}
	delete(r.byUser, userID)
	return removed
}

// EntriesForUsers returns every entry whose user is in userIDs. Duplicate
// ids in the argument do not duplicate entries.
func (r *Registry) EntriesForUsers(userIDs ...string) []Entry {
	var out []Entry
	for _, id := range lo.Uniq(userIDs) {
		for handle := range r.byUser[id] {
			out = append(out, r.entries[handle])
		}
	}
	return out
}

// AllEntries returns a snapshot of every live entry in no particular order.
func (r *Registry) AllEntries() []Entry {
	return lo.Values(r.entries)
}

// Len is the number of live entries.
func (r *Registry) Len() int { return len(r.entries) }

// Users is the number of distinct bound users.
func (r *Registry) Users() int { return len(r.byUser) }
