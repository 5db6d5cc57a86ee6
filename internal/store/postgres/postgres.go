// Package postgres implements store.Store on PostgreSQL via database/sql and
// lib/pq. Every write is an idempotent upsert or delete; conflicts are
// resolved in SQL rather than by read-then-write.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/arcade/lobby/internal/store"
)

// Store is the PostgreSQL store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle, used by Migrate.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	const query = `SELECT id, username, avatar, online FROM users ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	users := []store.User{}
	for rows.Next() {
		var u store.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Avatar, &u.Online); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) getUserBy(ctx context.Context, column, value string) (*store.User, error) {
	query := `SELECT id, username, avatar, online FROM users WHERE ` + column + ` = $1`

	var u store.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(&u.ID, &u.Username, &u.Avatar, &u.Online)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*store.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	if u.Avatar == "" {
		u.Avatar = store.DefaultAvatar
	}
	const query = `
		INSERT INTO users (id, username, avatar)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, u.ID, u.Username, u.Avatar); err != nil {
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

func (s *Store) SetOnline(ctx context.Context, userID string, online bool) error {
	const query = `UPDATE users SET online = $2 WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, userID, online); err != nil {
		return fmt.Errorf("postgres: set online: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func (s *Store) InsertMessage(ctx context.Context, m *store.Message) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	const query = `
		INSERT INTO messages (sender_id, receiver_id, content, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query, m.SenderID, m.ReceiverID, m.Content, m.Timestamp).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("postgres: insert message: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, a, b string) ([]store.Message, error) {
	const query = `
		SELECT id, sender_id, receiver_id, content, timestamp
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("postgres: conversation: %w", err)
	}
	defer rows.Close()

	msgs := []store.Message{}
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

func (s *Store) BlockExists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, blockerID, blockedID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: block exists: %w", err)
	}
	return exists, nil
}

func (s *Store) AddBlock(ctx context.Context, blockerID, blockedID string) error {
	const query = `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, blockerID, blockedID); err != nil {
		return fmt.Errorf("postgres: add block: %w", err)
	}
	return nil
}

func (s *Store) RemoveBlock(ctx context.Context, blockerID, blockedID string) error {
	const query = `DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`

	if _, err := s.db.ExecContext(ctx, query, blockerID, blockedID); err != nil {
		return fmt.Errorf("postgres: remove block: %w", err)
	}
	return nil
}

func (s *Store) ListBlocks(ctx context.Context, userID string) (store.BlockLists, error) {
	const query = `
		SELECT blocker_id, blocked_id
		FROM blocks
		WHERE blocker_id = $1 OR blocked_id = $1
		ORDER BY blocker_id, blocked_id`

	lists := store.BlockLists{Blocked: []string{}, BlockedBy: []string{}}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return lists, fmt.Errorf("postgres: list blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blocker, blocked string
		if err := rows.Scan(&blocker, &blocked); err != nil {
			return lists, fmt.Errorf("postgres: scan block: %w", err)
		}
		if blocker == userID {
			lists.Blocked = append(lists.Blocked, blocked)
		}
		if blocked == userID {
			lists.BlockedBy = append(lists.BlockedBy, blocker)
		}
	}
	return lists, rows.Err()
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

func (s *Store) UpsertFriendEdge(ctx context.Context, userID, friendID string, status store.FriendStatus) error {
	// A pending write only inserts; an accepted write also upgrades.
	const query = `
		INSERT INTO friends (user_id, friend_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, friend_id)
		DO UPDATE SET status = EXCLUDED.status
		WHERE EXCLUDED.status = 'accepted'`

	if _, err := s.db.ExecContext(ctx, query, userID, friendID, string(status)); err != nil {
		return fmt.Errorf("postgres: upsert friend: %w", err)
	}
	return nil
}

func (s *Store) DeleteFriendEdge(ctx context.Context, userID, friendID string) error {
	const query = `DELETE FROM friends WHERE user_id = $1 AND friend_id = $2`

	if _, err := s.db.ExecContext(ctx, query, userID, friendID); err != nil {
		return fmt.Errorf("postgres: delete friend: %w", err)
	}
	return nil
}

func (s *Store) ListFriends(ctx context.Context, userID string) (store.FriendLists, error) {
	const query = `
		SELECT 'accepted', u.id, u.username, u.avatar
		FROM friends f JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1 AND f.status = 'accepted'
		UNION ALL
		SELECT 'outgoing', u.id, u.username, u.avatar
		FROM friends f JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1 AND f.status = 'pending'
		UNION ALL
		SELECT 'incoming', u.id, u.username, u.avatar
		FROM friends f JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = $1 AND f.status = 'pending'
		ORDER BY 2`

	lists := store.FriendLists{
		Accepted: []store.Profile{},
		Incoming: []store.Profile{},
		Outgoing: []store.Profile{},
	}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return lists, fmt.Errorf("postgres: list friends: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var p store.Profile
		if err := rows.Scan(&kind, &p.ID, &p.Username, &p.Avatar); err != nil {
			return lists, fmt.Errorf("postgres: scan friend: %w", err)
		}
		switch kind {
		case "accepted":
			lists.Accepted = append(lists.Accepted, p)
		case "outgoing":
			lists.Outgoing = append(lists.Outgoing, p)
		case "incoming":
			lists.Incoming = append(lists.Incoming, p)
		}
	}
	return lists, rows.Err()
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

func (s *Store) GetInvite(ctx context.Context, inviterID, inviteeID string) (*store.Invite, error) {
	const query = `
		SELECT status, created_at FROM invites
		WHERE inviter_id = $1 AND invitee_id = $2`

	inv := store.Invite{InviterID: inviterID, InviteeID: inviteeID}
	var status string
	err := s.db.QueryRowContext(ctx, query, inviterID, inviteeID).Scan(&status, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get invite: %w", err)
	}
	inv.Status = store.InviteStatus(status)
	return &inv, nil
}

func (s *Store) UpsertInvite(ctx context.Context, inviterID, inviteeID string) error {
	const query = `
		INSERT INTO invites (inviter_id, invitee_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (inviter_id, invitee_id)
		DO UPDATE SET status = 'pending', created_at = now()
		WHERE invites.status <> 'pending'`

	if _, err := s.db.ExecContext(ctx, query, inviterID, inviteeID); err != nil {
		return fmt.Errorf("postgres: upsert invite: %w", err)
	}
	return nil
}

func (s *Store) DeleteInvite(ctx context.Context, inviterID, inviteeID string) error {
	const query = `DELETE FROM invites WHERE inviter_id = $1 AND invitee_id = $2`

	if _, err := s.db.ExecContext(ctx, query, inviterID, inviteeID); err != nil {
		return fmt.Errorf("postgres: delete invite: %w", err)
	}
	return nil
}

func (s *Store) SetInviteStatus(ctx context.Context, inviterID, inviteeID string, status store.InviteStatus) error {
	const query = `UPDATE invites SET status = $3 WHERE inviter_id = $1 AND invitee_id = $2`

	if _, err := s.db.ExecContext(ctx, query, inviterID, inviteeID, string(status)); err != nil {
		return fmt.Errorf("postgres: set invite status: %w", err)
	}
	return nil
}

func (s *Store) ListInvites(ctx context.Context, userID string) (store.InviteLists, error) {
	const query = `
		SELECT inviter_id, invitee_id
		FROM invites
		WHERE status = 'pending' AND (inviter_id = $1 OR invitee_id = $1)
		ORDER BY inviter_id, invitee_id`

	lists := store.InviteLists{Incoming: []string{}, Outgoing: []string{}}
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return lists, fmt.Errorf("postgres: list invites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inviter, invitee string
		if err := rows.Scan(&inviter, &invitee); err != nil {
			return lists, fmt.Errorf("postgres: scan invite: %w", err)
		}
		if inviter == userID {
			lists.Outgoing = append(lists.Outgoing, invitee)
		}
		if invitee == userID {
			lists.Incoming = append(lists.Incoming, inviter)
		}
	}
	return lists, rows.Err()
}

// ---------------------------------------------------------------------------
// Matches
// ---------------------------------------------------------------------------

func (s *Store) CreateMatch(ctx context.Context, m *store.Match) error {
	if m.MatchType == "" {
		m.MatchType = store.MatchRegular
	}
	if m.GameType == "" {
		m.GameType = "default"
	}
	const query = `
		INSERT INTO matches (player1_id, player2_id, winner_id, score, match_type, game_type, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		m.Player1ID, m.Player2ID, m.WinnerID, m.Score, m.MatchType, m.GameType, m.Duration,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create match: %w", err)
	}
	return nil
}

func (s *Store) ListMatches(ctx context.Context, userID, matchType string) ([]store.Match, error) {
	const query = `
		SELECT m.id, m.player1_id, m.player2_id, m.winner_id, m.score, m.match_type,
		       m.game_type, m.duration, m.created_at,
		       COALESCE(p1.username, ''), COALESCE(p1.avatar, ''),
		       COALESCE(p2.username, ''), COALESCE(p2.avatar, ''),
		       w.username
		FROM matches m
		LEFT JOIN users p1 ON p1.id = m.player1_id
		LEFT JOIN users p2 ON p2.id = m.player2_id
		LEFT JOIN users w ON w.id = m.winner_id
		WHERE (m.player1_id = $1 OR m.player2_id = $1)
		  AND ($2 = '' OR m.match_type = $2)
		ORDER BY m.created_at DESC, m.id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, matchType)
	if err != nil {
		return nil, fmt.Errorf("postgres: list matches: %w", err)
	}
	defer rows.Close()

	matches := []store.Match{}
	for rows.Next() {
		var (
			m        store.Match
			winnerID sql.NullString
			score    sql.NullString
			duration sql.NullInt64
			winner   sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &winnerID, &score, &m.MatchType,
			&m.GameType, &duration, &m.CreatedAt,
			&m.Player1Name, &m.Player1Avatar, &m.Player2Name, &m.Player2Avatar, &winner); err != nil {
			return nil, fmt.Errorf("postgres: scan match: %w", err)
		}
		if winnerID.Valid {
			m.WinnerID = &winnerID.String
		}
		if score.Valid {
			m.Score = &score.String
		}
		if duration.Valid {
			d := int(duration.Int64)
			m.Duration = &d
		}
		if winner.Valid {
			m.WinnerName = &winner.String
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) MatchStats(ctx context.Context, userID string) (store.MatchStats, error) {
	const query = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE winner_id = $1),
		       COUNT(*) FILTER (WHERE winner_id IS NULL)
		FROM matches
		WHERE player1_id = $1 OR player2_id = $1`

	var st store.MatchStats
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&st.TotalMatches, &st.Wins, &st.Draws); err != nil {
		return st, fmt.Errorf("postgres: match stats: %w", err)
	}
	st.Losses = st.TotalMatches - st.Wins - st.Draws
	return st, nil
}
