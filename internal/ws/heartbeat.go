package ws

import (
	"time"

	"github.com/rs/zerolog/log"
)

// HeartbeatConfig holds heartbeat tuning parameters.
type HeartbeatConfig struct {
	Interval time.Duration // how often to ping (default: 30s)
	Timeout  time.Duration // max time to wait for activity after ping (default: 10s)
}

// DefaultHeartbeatConfig returns sensible defaults for heartbeat monitoring.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// startHeartbeat periodically pings every connection and evicts those with
// no inbound frame within Interval + Timeout. It exits when the server stops.
func (s *Server) startHeartbeat(config HeartbeatConfig) {
	go func() {
		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.checkConnections(config)
			}
		}
	}()
}

// checkConnections evicts stale connections and pings the rest with a
// protocol-level ping frame, which browsers answer automatically.
func (s *Server) checkConnections(config HeartbeatConfig) {
	deadline := config.Interval + config.Timeout
	now := time.Now()

	for _, c := range s.conns.All() {
		if idle := now.Sub(c.LastActive()); idle > deadline {
			log.Info().Str("component", "ws").Str("conn", c.ID).
				Dur("idle", idle.Round(time.Second)).Msg("heartbeat timeout")
			s.RemoveConnection(c)
			continue
		}

		if err := c.WritePing(); err != nil {
			log.Info().Str("component", "ws").Str("conn", c.ID).Err(err).Msg("heartbeat ping failed")
			s.RemoveConnection(c)
		}
	}
}
