// Package memory is an in-process implementation of store.Store used for
// local development (STORE_DRIVER=memory) and as the realistic backend in
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arcade/lobby/internal/store"
)

type pair struct{ a, b string }

type invite struct {
	status    store.InviteStatus
	createdAt time.Time
}

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]store.User
	order    []string // user ids in creation order
	messages []store.Message
	nextMsg  int64
	blocks   map[pair]struct{}
	friends  map[pair]store.FriendStatus
	invites  map[pair]invite
	matches  []store.Match
	nextMat  int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]store.User),
		blocks:  make(map[pair]struct{}),
		friends: make(map[pair]store.FriendStatus),
		invites: make(map[pair]invite),
	}
}

func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if u := s.users[id]; u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return nil
	}
	if u.Avatar == "" {
		u.Avatar = store.DefaultAvatar
	}
	s.users[u.ID] = u
	s.order = append(s.order, u.ID)
	return nil
}

func (s *Store) SetOnline(ctx context.Context, userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.Online = online
		s.users[userID] = u
	}
	return nil
}

func (s *Store) InsertMessage(ctx context.Context, m *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	m.ID = s.nextMsg
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *Store) GetConversation(ctx context.Context, a, b string) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.Message{}
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *Store) BlockExists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[pair{blockerID, blockedID}]
	return ok, nil
}

func (s *Store) AddBlock(ctx context.Context, blockerID, blockedID string) error {
	s.mu.Lock()
	s.blocks[pair{blockerID, blockedID}] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) RemoveBlock(ctx context.Context, blockerID, blockedID string) error {
	s.mu.Lock()
	delete(s.blocks, pair{blockerID, blockedID})
	s.mu.Unlock()
	return nil
}

func (s *Store) ListBlocks(ctx context.Context, userID string) (store.BlockLists, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := store.BlockLists{Blocked: []string{}, BlockedBy: []string{}}
	for p := range s.blocks {
		if p.a == userID {
			lists.Blocked = append(lists.Blocked, p.b)
		}
		if p.b == userID {
			lists.BlockedBy = append(lists.BlockedBy, p.a)
		}
	}
	sort.Strings(lists.Blocked)
	sort.Strings(lists.BlockedBy)
	return lists, nil
}

func (s *Store) UpsertFriendEdge(ctx context.Context, userID, friendID string, status store.FriendStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{userID, friendID}
	if _, ok := s.friends[key]; ok && status == store.FriendPending {
		return nil
	}
	s.friends[key] = status
	return nil
}

func (s *Store) DeleteFriendEdge(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	delete(s.friends, pair{userID, friendID})
	s.mu.Unlock()
	return nil
}

func (s *Store) ListFriends(ctx context.Context, userID string) (store.FriendLists, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := store.FriendLists{
		Accepted: []store.Profile{},
		Incoming: []store.Profile{},
		Outgoing: []store.Profile{},
	}
	for p, status := range s.friends {
		switch {
		case p.a == userID && status == store.FriendAccepted:
			lists.Accepted = s.appendProfile(lists.Accepted, p.b)
		case p.a == userID && status == store.FriendPending:
			lists.Outgoing = s.appendProfile(lists.Outgoing, p.b)
		case p.b == userID && status == store.FriendPending:
			lists.Incoming = s.appendProfile(lists.Incoming, p.a)
		}
	}
	for _, l := range [][]store.Profile{lists.Accepted, lists.Incoming, lists.Outgoing} {
		sort.Slice(l, func(i, j int) bool { return l[i].ID < l[j].ID })
	}
	return lists, nil
}

// appendProfile joins against users the way the SQL lists do: edges to
// unknown users are skipped.
func (s *Store) appendProfile(list []store.Profile, id string) []store.Profile {
	u, ok := s.users[id]
	if !ok {
		return list
	}
	return append(list, store.Profile{ID: u.ID, Username: u.Username, Avatar: u.Avatar})
}

func (s *Store) GetInvite(ctx context.Context, inviterID, inviteeID string) (*store.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invites[pair{inviterID, inviteeID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Invite{
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    inv.status,
		CreatedAt: inv.createdAt,
	}, nil
}

func (s *Store) UpsertInvite(ctx context.Context, inviterID, inviteeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{inviterID, inviteeID}
	if inv, ok := s.invites[key]; ok && inv.status == store.InvitePending {
		return nil
	}
	s.invites[key] = invite{status: store.InvitePending, createdAt: time.Now().UTC()}
	return nil
}

func (s *Store) DeleteInvite(ctx context.Context, inviterID, inviteeID string) error {
	s.mu.Lock()
	delete(s.invites, pair{inviterID, inviteeID})
	s.mu.Unlock()
	return nil
}

func (s *Store) SetInviteStatus(ctx context.Context, inviterID, inviteeID string, status store.InviteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{inviterID, inviteeID}
	if inv, ok := s.invites[key]; ok {
		inv.status = status
		s.invites[key] = inv
	}
	return nil
}

func (s *Store) ListInvites(ctx context.Context, userID string) (store.InviteLists, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := store.InviteLists{Incoming: []string{}, Outgoing: []string{}}
	for p, inv := range s.invites {
		if inv.status != store.InvitePending {
			continue
		}
		if p.a == userID {
			lists.Outgoing = append(lists.Outgoing, p.b)
		}
		if p.b == userID {
			lists.Incoming = append(lists.Incoming, p.a)
		}
	}
	sort.Strings(lists.Incoming)
	sort.Strings(lists.Outgoing)
	return lists, nil
}

func (s *Store) CreateMatch(ctx context.Context, m *store.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMat++
	m.ID = s.nextMat
	if m.MatchType == "" {
		m.MatchType = store.MatchRegular
	}
	if m.GameType == "" {
		m.GameType = "default"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.matches = append(s.matches, *m)
	return nil
}

func (s *Store) ListMatches(ctx context.Context, userID, matchType string) ([]store.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.Match{}
	for i := len(s.matches) - 1; i >= 0; i-- {
		m := s.matches[i]
		if m.Player1ID != userID && m.Player2ID != userID {
			continue
		}
		if matchType != "" && m.MatchType != matchType {
			continue
		}
		m.Player1Name, m.Player1Avatar = s.users[m.Player1ID].Username, s.users[m.Player1ID].Avatar
		m.Player2Name, m.Player2Avatar = s.users[m.Player2ID].Username, s.users[m.Player2ID].Avatar
		if m.WinnerID != nil {
			if w, ok := s.users[*m.WinnerID]; ok {
				name := w.Username
				m.WinnerName = &name
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) MatchStats(ctx context.Context, userID string) (store.MatchStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st store.MatchStats
	for _, m := range s.matches {
		if m.Player1ID != userID && m.Player2ID != userID {
			continue
		}
		st.TotalMatches++
		switch {
		case m.WinnerID == nil:
			st.Draws++
		case *m.WinnerID == userID:
			st.Wins++
		default:
			st.Losses++
		}
	}
	return st, nil
}

func (s *Store) Close() error { return nil }
