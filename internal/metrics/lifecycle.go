// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lifecycleStates = []string{"stopped", "starting", "running", "stopping"}

var (
	// Lifecycle metrics
	lifecycleState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vwworker_lifecycle_state",
		Help: "Current lifecycle state of the worker (1 for the active state)",
	}, []string{"state"})

	startStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_start_steps_total",
		Help: "Start steps by outcome",
	}, []string{"step", "outcome"}) // outcome=success|failure|skipped

	releasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_resource_releases_total",
		Help: "Resource releases during teardown by outcome",
	}, []string{"resource", "outcome"}) // outcome=success|failure

	stopDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vwworker_stop_duration_seconds",
		Help:    "Wall time spent tearing down owned resources",
		Buckets: prometheus.DefBuckets,
	})

	telemetryEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_telemetry_events_total",
		Help: "Telemetry events emitted by kind and severity",
	}, []string{"kind", "severity"})
)

// SetLifecycleState marks state as the active lifecycle state.
func SetLifecycleState(state string) {
	for _, s := range lifecycleStates {
		if s == state {
			lifecycleState.WithLabelValues(s).Set(1)
		} else {
			lifecycleState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordStartStep counts one start step outcome.
func RecordStartStep(step, outcome string) {
	startStepsTotal.WithLabelValues(step, outcome).Inc()
}

// RecordRelease counts one resource release.
func RecordRelease(resource string, err error) {
	releasesTotal.WithLabelValues(resource, outcome(err)).Inc()
}

// ObserveStopDuration records how long teardown took.
func ObserveStopDuration(seconds float64) {
	stopDuration.Observe(seconds)
}

// RecordTelemetryEvent counts a trace or exception event.
func RecordTelemetryEvent(kind, severity string) {
	telemetryEventsTotal.WithLabelValues(kind, severity).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
