// Package metrics provides Prometheus instrumentation for the lobby. It
// exposes gauges for connections and online users, counters for fan-out
// delivery and relationship actions, and a histogram for event loop latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Action results used as the "result" label of ActionsTotal.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultNoop     = "noop"
)

var (
	// ConnectionsTotal tracks the current number of open push connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// OnlineUsers tracks distinct users with at least one bound connection.
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_online_users",
		Help: "Current number of distinct online users",
	})

	// EventsDelivered counts frames handed to a connection, by event name.
	EventsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_events_delivered_total",
		Help: "Events queued to a live connection",
	}, []string{"event"})

	// EventsDropped counts targeted events whose user had no live connection.
	EventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_events_dropped_total",
		Help: "Targeted events dropped because the user was offline",
	}, []string{"event"})

	// ActionsTotal counts coordinator actions by outcome.
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_actions_total",
		Help: "Relationship actions processed",
	}, []string{"action", "result"}) // result = ok, rejected, error, noop

	// EventLoopLatency records how long a job waited for and ran on the loop.
	EventLoopLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lobby_event_loop_latency_seconds",
		Help:    "Time from submission to completion of an event loop job",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		OnlineUsers,
		EventsDelivered,
		EventsDropped,
		ActionsTotal,
		EventLoopLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
