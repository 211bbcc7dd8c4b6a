// Package metrics defines the Prometheus collectors exported by the chat relay.
// All collectors register with the default registry on package init and are
// served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rapidchat"

// ConnectionsActive tracks currently registered WebSocket connections.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Number of live WebSocket connections in the registry.",
	},
)

// MessagesTotal counts messages accepted into the history.
var MessagesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Total number of chat messages appended to the history.",
	},
)

// HistorySize tracks the number of messages currently retained for replay.
var HistorySize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_size",
		Help:      "Number of messages currently held in the replay window.",
	},
)

// ValidationErrorsTotal counts rejected inbound text.
// Label:
//   - field: "message" or "name"
var ValidationErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_errors_total",
		Help:      "Total number of inbound values rejected by validation.",
	},
	[]string{"field"},
)

// AuthAttemptsTotal counts login and token resolution attempts.
// Labels:
//   - channel: "rest" (login) or "ws" (token presented on a connection)
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts by channel and result.",
	},
	[]string{"channel", "result"},
)

// BroadcastDroppedTotal counts events dropped because a client buffer was full.
var BroadcastDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_dropped_total",
		Help:      "Total number of events not delivered to a slow consumer.",
	},
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
