// Package metrics exposes the Prometheus instrumentation for a partition
// executor and the WebSocket gateway, grounded on the teacher's
// counter/gauge/histogram vocabulary, generalized from per-event
// ingestion metrics to per-tick simulation metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snaketron_tick_duration_seconds",
		Help:    "Duration of a single step_forward call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"partition"})

	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snaketron_events_appended_total",
		Help: "Total number of events appended to a partition's log.",
	}, []string{"partition", "kind"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snaketron_events_dropped_total",
		Help: "Total number of events dropped during replay due to malformed or unresolvable payloads.",
	}, []string{"partition", "reason"})

	CommandQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snaketron_command_queue_depth",
		Help: "Current number of commands pending in a game's command queue.",
	}, []string{"partition", "game_id"})

	GamesOwned = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snaketron_games_owned",
		Help: "Current number of games owned by this partition executor.",
	}, []string{"partition"})

	TicksBehind = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snaketron_ticks_behind",
		Help: "Ticks a game's simulation currently owes relative to the wall clock.",
	}, []string{"partition", "game_id"})

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snaketron_websocket_connections",
		Help: "Current number of live WebSocket connections to the gateway.",
	})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snaketron_frames_dropped_total",
		Help: "Total number of outbound frames dropped due to a full per-connection send buffer.",
	}, []string{"direction"})
)
