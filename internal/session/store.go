package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionPrefix is the Redis key prefix for all session hashes.
	SessionPrefix = "session:"

	// SessionTTL is the time-to-live for session keys in Redis.
	SessionTTL = 1 * time.Hour
)

// Session is the mirrored state of one connection handle.
type Session struct {
	ID         string `redis:"id"`
	Server     string `redis:"server"`      // which lobby instance holds the socket
	UserID     string `redis:"user_id"`     // empty until user_join
	CreatedAt  int64  `redis:"created_at"`  // unix timestamp
	LastActive int64  `redis:"last_active"` // unix timestamp
}

// Store manages session state in Redis.
type Store struct {
	client     *redis.Client
	serverName string
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisAddr string, serverName string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis connection failed: %w", err)
	}

	return &Store{client: client, serverName: serverName}, nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *redis.Client, serverName string) *Store {
	return &Store{client: client, serverName: serverName}
}

// Create stores a new unbound session with a 1h TTL.
func (s *Store) Create(ctx context.Context, handle string) error {
	key := SessionPrefix + handle
	now := time.Now().Unix()

	session := map[string]interface{}{
		"id":          handle,
		"server":      s.serverName,
		"user_id":     "",
		"created_at":  now,
		"last_active": now,
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, session)
	pipe.Expire(ctx, key, SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

// Get retrieves a session from Redis. Returns nil if not found.
func (s *Store) Get(ctx context.Context, handle string) (*Session, error) {
	var session Session
	if err := s.client.HGetAll(ctx, SessionPrefix+handle).Scan(&session); err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	if session.ID == "" {
		return nil, nil
	}
	return &session, nil
}

// BindUser records the user a handle joined as and refreshes the TTL.
func (s *Store) BindUser(ctx context.Context, handle, userID string) error {
	key := SessionPrefix + handle
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "user_id", userID, "last_active", time.Now().Unix())
	pipe.Expire(ctx, key, SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: bind user: %w", err)
	}
	return nil
}

// Delete removes a session from Redis.
func (s *Store) Delete(ctx context.Context, handle string) error {
	return s.client.Del(ctx, SessionPrefix+handle).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client so the rate limiter can share it.
func (s *Store) Client() *redis.Client {
	return s.client
}
