// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vwworker_events_processed_total",
		Help: "Stream events folded into the model",
	})

	eventReadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vwworker_event_read_errors_total",
		Help: "Failed reads from the event source",
	})

	checkpointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_checkpoints_total",
		Help: "Checkpoint saves by trigger and outcome",
	}, []string{"trigger", "outcome"}) // trigger=periodic|admin|final

	modelGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vwworker_model_generation",
		Help: "Generation counter of the in-memory model",
	})

	settingsReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_settings_reloads_total",
		Help: "Settings file reloads by outcome",
	}, []string{"outcome"})

	adminCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_admin_commands_total",
		Help: "Admin commands handled by command and outcome",
	}, []string{"command", "outcome"})
)

// AddEventsProcessed counts n processed events.
func AddEventsProcessed(n int) {
	if n > 0 {
		eventsProcessedTotal.Add(float64(n))
	}
}

// IncEventReadError counts one failed source read.
func IncEventReadError() {
	eventReadErrorsTotal.Inc()
}

// RecordCheckpoint counts one checkpoint attempt.
func RecordCheckpoint(trigger string, err error) {
	checkpointsTotal.WithLabelValues(trigger, outcome(err)).Inc()
}

// SetModelGeneration publishes the current model generation.
func SetModelGeneration(gen uint64) {
	modelGeneration.Set(float64(gen))
}

// RecordSettingsReload counts one reload attempt.
func RecordSettingsReload(err error) {
	settingsReloadsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordAdminCommand counts one admin command.
func RecordAdminCommand(command, result string) {
	adminCommandsTotal.WithLabelValues(command, result).Inc()
}
