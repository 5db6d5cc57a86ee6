// Package fanout delivers events to the live connections of a set of users.
// Offline users are skipped without error; a user with several connections
// gets one copy per connection.
package fanout

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/arcade/lobby/internal/metrics"
	"github.com/arcade/lobby/internal/presence"
	"github.com/arcade/lobby/internal/protocol"
)

// Sender is the transport side of delivery. SendMessage queues one frame for
// one connection; Broadcast queues it for every open connection, joined or
// not, and returns how many accepted it.
type Sender interface {
	SendMessage(handle string, data []byte) error
	Broadcast(data []byte) int
}

// Broadcaster resolves users to handles through the registry. Like the
// registry it must only be called from the event loop.
type Broadcaster struct {
	reg    *presence.Registry
	sender Sender
}

// New returns a Broadcaster over reg and sender.
func New(reg *presence.Registry, sender Sender) *Broadcaster {
	return &Broadcaster{reg: reg, sender: sender}
}

// Send encodes payload once and queues it on every connection of userIDs.
// It returns the number of connections that accepted the frame.
func (b *Broadcaster) Send(userIDs []string, event string, payload any) int {
	data, err := protocol.NewServerMessage(event, payload)
	if err != nil {
		log.Error().Str("component", "fanout").Str("event", event).Err(err).Msg("encode failed")
		return 0
	}

	targets := lo.Uniq(userIDs)
	entries := b.reg.EntriesForUsers(targets...)

	reached := make(map[string]bool, len(targets))
	delivered := 0
	for _, e := range entries {
		if err := b.sender.SendMessage(e.Handle, data); err != nil {
			log.Debug().Str("component", "fanout").Str("event", event).
				Str("handle", e.Handle).Err(err).Msg("send failed")
			continue
		}
		reached[e.UserID] = true
		delivered++
	}

	for _, id := range targets {
		if !reached[id] {
			metrics.EventsDropped.WithLabelValues(event).Inc()
			log.Debug().Str("component", "fanout").Str("event", event).Str("user_id", id).Msg("target offline, dropped")
		}
	}
	metrics.EventsDelivered.WithLabelValues(event).Add(float64(delivered))
	return delivered
}

// SendTo queues an event on a single connection.
func (b *Broadcaster) SendTo(handle string, event string, payload any) error {
	data, err := protocol.NewServerMessage(event, payload)
	if err != nil {
		return err
	}
	if err := b.sender.SendMessage(handle, data); err != nil {
		return err
	}
	metrics.EventsDelivered.WithLabelValues(event).Inc()
	return nil
}

// SendAll queues an event on every open connection.
func (b *Broadcaster) SendAll(event string, payload any) int {
	data, err := protocol.NewServerMessage(event, payload)
	if err != nil {
		log.Error().Str("component", "fanout").Str("event", event).Err(err).Msg("encode failed")
		return 0
	}
	n := b.sender.Broadcast(data)
	metrics.EventsDelivered.WithLabelValues(event).Add(float64(n))
	return n
}
