// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "journey",
			Name:      "deliveries_total",
			Help:      "Delivery attempts by outcome.",
		},
		[]string{"outcome"}, // delivered, failed, paused, skipped
	)

	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "journey",
			Name:      "lock_contention_total",
			Help:      "Recipients skipped because another worker held the delivery lock.",
		},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "journey",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one scheduler tick.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	TickAborts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "journey",
			Name:      "tick_aborts_total",
			Help:      "Ticks aborted because the store was unavailable.",
		},
	)
)
