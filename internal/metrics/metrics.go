// Package metrics exposes the Prometheus instruments for the delivery
// pipeline. All collectors register against the default registry and
// are served from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveryAttempts counts individual delivery attempts by outcome.
	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "delivery_attempts_total",
		Help:      "Total webhook delivery attempts by outcome.",
	}, []string{"outcome"})

	// DeliveryDuration observes wall time of a single attempt.
	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "delivery_duration_seconds",
		Help:      "Duration of webhook delivery attempts.",
		Buckets:   prometheus.DefBuckets,
	})

	// JobsCompleted counts jobs reaching a terminal state.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "jobs_completed_total",
		Help:      "Delivery jobs reaching a terminal state, by status.",
	}, []string{"status"})

	// JobsSubmitted counts new delivery jobs entering the pipeline.
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "jobs_submitted_total",
		Help:      "Delivery jobs created.",
	})

	// SchedulerClaims observes how many due jobs each sweep picked up.
	SchedulerClaims = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "scheduler_claimed_jobs",
		Help:      "Due jobs claimed per scheduler sweep.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
	})

	// SchedulerErrors counts failed scheduler sweeps.
	SchedulerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "scheduler_sweep_errors_total",
		Help:      "Scheduler sweeps that failed to claim due jobs.",
	})

	// InboundEvents counts inbound anchor notifications by result.
	InboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paystell",
		Subsystem: "webhooks",
		Name:      "inbound_events_total",
		Help:      "Inbound anchor notifications by handling result.",
	}, []string{"result"})
)
