// Package metrics instruments the engine from the outside — the engine
// package itself stays sans-I/O and never imports this package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MethodIssueDuration measures how long each outbound issuer call takes
// (guard + encode + emit + bookkeeping). Label 'method' is e.g. "queue.declare".
var MethodIssueDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "amqp_engine_method_issue_duration_seconds",
		Help:    "Duration of outbound method issuer calls in seconds",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	},
	[]string{"method"},
)

// MethodsIssuedTotal counts outbound methods issued, by method name.
var MethodsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqp_engine_methods_issued_total",
		Help: "Total outbound AMQP methods issued",
	},
	[]string{"method"},
)

// RepliesCompletedTotal counts inbound replies that completed a pending
// request, by method name and outcome ("ok" or "unexpected").
var RepliesCompletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqp_engine_replies_completed_total",
		Help: "Total inbound replies processed, by outcome",
	},
	[]string{"method", "outcome"},
)

// ConfirmsTotal counts publisher-confirm resolutions, by outcome ("ack" or "nack").
var ConfirmsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqp_engine_confirms_total",
		Help: "Total publisher confirms resolved, by outcome",
	},
	[]string{"outcome"},
)

// AwaitingDepth reports the current length of a channel's pending-reply
// queue. Label 'channel' is the string form of the channel id.
var AwaitingDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "amqp_engine_awaiting_depth",
		Help: "Current depth of the per-channel pending-reply queue",
	},
	[]string{"channel"},
)
