// Package metrics implements the supervisor's Prometheus metrics,
// grounded on the teacher's capture-agent metrics but re-pointed at the
// cycle engine, queues and pingers instead of packet capture.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CycleDurationSeconds measures how long one full cycle (dequeue,
	// dispatch, check-state, gather, publish) takes (§8 "cycle overrun").
	CycleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hil",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one supervisor cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		},
	)

	// CycleOverrunsTotal counts cycles that ran longer than the cycle
	// period (1s by default) and so started their successor immediately
	// (§8).
	CycleOverrunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hil",
			Name:      "cycle_overruns_total",
			Help:      "Count of cycles that exceeded the cycle time budget.",
		},
	)

	// CommandQueueDepth tracks the unbounded command queue's depth.
	CommandQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hil",
			Name:      "command_queue_depth",
			Help:      "Current depth of the pending command queue.",
		},
	)

	// TelemetryQueueDepth tracks the bounded (200) telemetry queue's
	// depth, so an operator can see it saturating before drops occur.
	TelemetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hil",
			Name:      "telemetry_queue_depth",
			Help:      "Current depth of the bounded telemetry queue.",
		},
	)

	// TelemetryQueueDroppedTotal counts drop-oldest evictions on the
	// bounded telemetry queue (§8 "boundary").
	TelemetryQueueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hil",
			Name:      "telemetry_queue_dropped_total",
			Help:      "Count of telemetry buckets evicted from the bounded queue.",
		},
	)

	// CommandsTotal counts dispatched commands by operation and outcome.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hil",
			Name:      "commands_total",
			Help:      "Count of dispatched commands by operation and outcome.",
		},
		[]string{"operation", "outcome"}, // outcome: ack, invalid_cmd, not_found, warning (every other dispatch error)
	)

	// PingerConnected mirrors each pinger's latched connectivity signal
	// (§4.5) as a gauge for dashboards and alerting.
	PingerConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hil",
			Name:      "pinger_connected",
			Help:      "1 if the named pinger's last probe succeeded, 0 otherwise.",
		},
		[]string{"endpoint"},
	)

	// PingerProbeDurationSeconds measures each pinger probe round trip.
	PingerProbeDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hil",
			Name:      "pinger_probe_duration_seconds",
			Help:      "Duration of one pinger probe attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// DriverErrorsTotal counts Driver-level warnings and fatal errors by
	// leaf component and severity (§4.1, §7).
	DriverErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hil",
			Name:      "driver_errors_total",
			Help:      "Count of Driver errors by component and severity.",
		},
		[]string{"component", "severity"},
	)
)

// ObserveCycleDuration records one cycle's wall-clock duration and bumps
// the overrun counter if it exceeded budget.
func ObserveCycleDuration(elapsed, budget time.Duration) {
	CycleDurationSeconds.Observe(elapsed.Seconds())
	if elapsed > budget {
		CycleOverrunsTotal.Inc()
	}
}
