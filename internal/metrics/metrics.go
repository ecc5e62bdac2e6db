package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqidash_gateway_calls_total",
			Help: "Total air quality API calls by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aqidash_gateway_latency_seconds",
			Help:    "Air quality API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	SlotTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqidash_slot_transitions_total",
			Help: "Dashboard slot settlements by metric key and outcome",
		},
		[]string{"key", "outcome"},
	)

	RoundsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqidash_rounds_started_total",
			Help: "Fan-out rounds started, by kind (apply or predict)",
		},
		[]string{"kind"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqidash_exports_total",
			Help: "Workbook exports by outcome",
		},
		[]string{"outcome"},
	)
)
