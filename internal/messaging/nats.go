// Package messaging provides a NATS client wrapper for pub/sub between the
// lobby and neighbouring services: presence changes go out on
// lobby.presence and tournament notices come in on lobby.tournament.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/protocol"
)

// NATS subjects used by the lobby.
const (
	SubjectPresence   = "lobby.presence"
	SubjectTournament = "lobby.tournament"
)

// PresenceEvent is published after every membership change.
type PresenceEvent struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "lobby",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Str("component", "nats").Err(err).Msg("disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("component", "nats").Str("url", nc.ConnectedUrl()).Msg("reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Str("component", "nats").Msg("connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	log.Info().Str("component", "nats").Str("url", nc.ConnectedUrl()).Msg("connected")

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe registers a handler for the given subject and stores the
// subscription internally for later cleanup.
func (c *NATSClient) Subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("messaging: subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// PublishPresence announces that userID went online or offline.
func (c *NATSClient) PublishPresence(userID string, online bool) error {
	data, err := json.Marshal(PresenceEvent{UserID: userID, Online: online})
	if err != nil {
		return fmt.Errorf("messaging: encode presence: %w", err)
	}
	return c.Publish(SubjectPresence, data)
}

// SubscribeTournament delivers every valid lobby.tournament notice to
// handler. Notices without a message are logged and dropped.
func (c *NATSClient) SubscribeTournament(handler func(update protocol.TournamentUpdate)) error {
	return c.Subscribe(SubjectTournament, func(msg *nats.Msg) {
		update, err := DecodeTournament(msg.Data)
		if err != nil {
			log.Warn().Str("component", "nats").Str("subject", msg.Subject).Err(err).Msg("dropping tournament notice")
			return
		}
		handler(update)
	})
}

// DecodeTournament parses a tournament notice.
func DecodeTournament(data []byte) (protocol.TournamentUpdate, error) {
	var update protocol.TournamentUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return update, fmt.Errorf("messaging: decode tournament: %w", err)
	}
	if update.Message == "" {
		return update, fmt.Errorf("messaging: tournament notice without message")
	}
	return update, nil
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Warn().Str("component", "nats").Str("subject", subject).Err(err).Msg("drain failed")
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Warn().Str("component", "nats").Err(err).Msg("connection drain failed")
	}
}

// Unsubscribe removes the subscription for subject.
func (c *NATSClient) Unsubscribe(subject string) error {
	c.mu.Lock()
	sub, ok := c.subs[subject]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("messaging: no subscription for subject %s", subject)
	}
	delete(c.subs, subject)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("messaging: unsubscribe %s: %w", subject, err)
	}
	return nil
}
