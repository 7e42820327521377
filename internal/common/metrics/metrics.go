// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_applied_total",
			Help: "Total number of status transitions applied",
		},
		[]string{"from", "to"},
	)

	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_rejected_total",
			Help: "Total number of transitions rejected by validator or guards",
		},
		[]string{"reason"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lifecycle_operation_duration_seconds",
			Help: "Duration of lifecycle operations in seconds",
		},
		[]string{"operation"},
	)

	OutboxDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_outbox_dispatched_total",
			Help: "Notification outbox delivery outcomes",
		},
		[]string{"event_type", "outcome"},
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifecycle_outbox_pending",
			Help: "Number of undelivered notification outbox rows",
		},
	)
)
