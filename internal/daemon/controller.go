// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon drives the worker lifecycle: Start acquires telemetry, the
// processor host, the settings watcher and the admin endpoint; Run blocks
// until Stop; Stop releases what was acquired in a fixed order.
//
// No failure inside Start, Run or Stop is returned as fatal. Each one is
// logged, sent to telemetry and collected in the Report the call returns.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ManuGH/vwworker/internal/health"
	xglog "github.com/ManuGH/vwworker/internal/log"
	"github.com/ManuGH/vwworker/internal/metrics"
	"github.com/ManuGH/vwworker/internal/telemetry"
	"github.com/rs/zerolog"
)

// Step names, shared by reports, logs and metrics.
const (
	StepLifecycle = "lifecycle"
	StepTelemetry = "telemetry"
	StepHost      = "host"
	StepWatcher   = "watcher"
	StepAdmin     = "admin"
	StepWait      = "wait"
)

const telemetryFlushTimeout = 5 * time.Second

// Controller owns the worker's resources and drives Start, Run and Stop.
type Controller struct {
	deps   Deps
	logger zerolog.Logger
	signal *StopSignal
	wait   func()

	// lifecycleMu serializes Start and Stop.
	lifecycleMu sync.Mutex

	mu      sync.Mutex
	state   State
	started bool
	stopped bool
	sink    Telemetry

	watcher *Resource
	host    *Resource
	admin   *Resource
}

// New validates deps and returns a stopped controller.
func New(deps Deps) (*Controller, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		deps:    deps,
		logger:  deps.Logger,
		signal:  NewStopSignal(),
		state:   StateStopped,
		sink:    telemetry.NewLogClient(deps.Logger),
		watcher: NewResource(StepWatcher),
		host:    NewResource(StepHost),
		admin:   NewResource(StepAdmin),
	}
	c.wait = func() { <-c.signal.Done() }
	if deps.Health != nil {
		deps.Health.RegisterChecker(health.CheckerFunc(StepLifecycle, c.checkHealth))
	}
	metrics.SetLifecycleState(StateStopped.String())
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Signal returns the stop signal Run waits on.
func (c *Controller) Signal() *StopSignal { return c.signal }

// Start acquires telemetry, host, watcher and admin endpoint in that order.
// A failed step is reported and skipped; resources acquired before it are
// kept. The watcher and admin endpoint need the host and are skipped when
// it is absent. The state is Running when Start returns.
//
// Only the first call does anything. Later calls return a report holding
// ErrAlreadyStarted, or ErrStopped once Stop has run.
func (c *Controller) Start(ctx context.Context) Report {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	var report Report

	c.mu.Lock()
	switch {
	case c.stopped:
		c.mu.Unlock()
		report.add(PhaseStart, StepLifecycle, ErrStopped)
		c.logger.Warn().Str(xglog.FieldEvent, "lifecycle.start_rejected").Err(ErrStopped).Msg("start after stop ignored")
		return report
	case c.started:
		c.mu.Unlock()
		report.add(PhaseStart, StepLifecycle, ErrAlreadyStarted)
		c.logger.Warn().Str(xglog.FieldEvent, "lifecycle.start_rejected").Err(ErrAlreadyStarted).Msg("repeated start ignored")
		return report
	}
	c.started = true
	c.setStateLocked(StateStarting)
	c.mu.Unlock()

	begin := time.Now()
	c.initTelemetry(ctx, &report)
	c.trace("worker starting", telemetry.SeverityInformation)

	var host Host
	c.acquire(&report, c.host, func() (io.Closer, error) {
		h, err := c.deps.NewHost(ctx)
		if err != nil {
			return nil, err
		}
		host = h
		return h, nil
	})
	if !c.host.Held() {
		host = nil
	}

	if host == nil {
		c.skip(&report, StepWatcher)
		c.skip(&report, StepAdmin)
	} else {
		c.acquire(&report, c.watcher, func() (io.Closer, error) {
			return c.deps.NewWatcher(ctx, host)
		})
		c.acquire(&report, c.admin, func() (io.Closer, error) {
			return c.deps.StartAdmin(ctx, host)
		})
	}

	c.mu.Lock()
	c.setStateLocked(StateRunning)
	c.mu.Unlock()

	level := zerolog.InfoLevel
	if !report.OK() {
		level = zerolog.WarnLevel
	}
	c.logger.WithLevel(level).
		Str(xglog.FieldEvent, "lifecycle.started").
		Bool("host", c.host.Held()).
		Bool("watcher", c.watcher.Held()).
		Bool("admin", c.admin.Held()).
		Int("failures", len(report.Steps)).
		Dur(xglog.FieldDuration, time.Since(begin)).
		Msg("worker started")
	return report
}

// Run blocks until the stop signal fires. A panic while waiting is
// recovered, reported and ends the wait.
func (c *Controller) Run() (report Report) {
	defer func() {
		if rec := recover(); rec != nil {
			c.fail(&report, PhaseRun, StepWait, fmt.Errorf("panic while waiting for stop: %v", rec))
		}
	}()

	c.logger.Info().Str(xglog.FieldEvent, "lifecycle.run").Msg("waiting for stop signal")
	c.wait()
	c.logger.Info().Str(xglog.FieldEvent, "lifecycle.run_returned").Msg("stop signal received")
	return report
}

// Stop fires the stop signal and releases the watcher, the host and the
// admin listener, strictly in that order. Every release is attempted even
// when an earlier one fails. Stop is idempotent: only the first call
// releases anything. Stop before Start only fires the signal.
func (c *Controller) Stop(ctx context.Context) Report {
	c.signal.Fire()

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	var report Report

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return report
	}
	c.stopped = true
	if !c.started {
		c.mu.Unlock()
		c.logger.Info().Str(xglog.FieldEvent, "lifecycle.stop_before_start").Msg("stop requested before start")
		c.trace("worker stopping", telemetry.SeverityInformation)
		c.trace("worker stopped", telemetry.SeverityInformation)
		return report
	}
	c.setStateLocked(StateStopping)
	c.mu.Unlock()

	begin := time.Now()
	c.trace("worker stopping", telemetry.SeverityInformation)

	for _, res := range c.teardown() {
		if !res.Held() {
			continue
		}
		started := time.Now()
		err := res.Release()
		metrics.RecordRelease(res.Name(), err)
		if err != nil {
			c.fail(&report, PhaseStop, res.Name(), err)
			continue
		}
		c.logger.Info().
			Str(xglog.FieldEvent, "lifecycle.released").
			Str(xglog.FieldResource, res.Name()).
			Dur(xglog.FieldDuration, time.Since(started)).
			Msg("resource released")
	}

	c.trace("worker stopped", telemetry.SeverityInformation)

	c.mu.Lock()
	c.setStateLocked(StateStopped)
	sink := c.sink
	c.mu.Unlock()
	metrics.ObserveStopDuration(time.Since(begin).Seconds())

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
	defer cancel()
	if err := sink.Shutdown(flushCtx); err != nil {
		report.add(PhaseStop, StepTelemetry, err)
		c.logger.Warn().
			Str(xglog.FieldEvent, "lifecycle.telemetry_flush_failed").
			Err(err).
			Msg("telemetry flush failed")
	}

	c.logger.Info().
		Str(xglog.FieldEvent, "lifecycle.stopped").
		Int("failures", len(report.Steps)).
		Dur(xglog.FieldDuration, time.Since(begin)).
		Msg("worker stopped")
	return report
}

// teardown is the release order. Dependents of the host come before it.
func (c *Controller) teardown() []*Resource {
	return []*Resource{c.watcher, c.host, c.admin}
}

func (c *Controller) initTelemetry(ctx context.Context, report *Report) {
	var sink Telemetry
	err := protect(StepTelemetry, func() error {
		s, err := c.deps.NewTelemetry(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			return errors.New("telemetry factory returned no sink")
		}
		sink = s
		return nil
	})
	if err != nil {
		metrics.RecordStartStep(StepTelemetry, "failure")
		c.fail(report, PhaseStart, StepTelemetry, err)
		return
	}
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
	metrics.RecordStartStep(StepTelemetry, "success")
}

func (c *Controller) acquire(report *Report, slot *Resource, factory func() (io.Closer, error)) {
	started := time.Now()
	if err := slot.fill(factory); err != nil {
		metrics.RecordStartStep(slot.Name(), "failure")
		c.fail(report, PhaseStart, slot.Name(), err)
		return
	}
	metrics.RecordStartStep(slot.Name(), "success")
	c.logger.Info().
		Str(xglog.FieldEvent, "lifecycle.acquired").
		Str(xglog.FieldResource, slot.Name()).
		Dur(xglog.FieldDuration, time.Since(started)).
		Msg("resource acquired")
}

func (c *Controller) skip(report *Report, step string) {
	metrics.RecordStartStep(step, "skipped")
	report.add(PhaseStart, step, ErrProcessorUnavailable)
	c.logger.Warn().
		Str(xglog.FieldEvent, "lifecycle.start_step_skipped").
		Str(xglog.FieldStep, step).
		Err(ErrProcessorUnavailable).
		Msg("start step skipped")
}

// fail records err in report, logs it and forwards it to telemetry.
func (c *Controller) fail(report *Report, phase Phase, step string, err error) {
	report.add(phase, step, err)
	c.logger.Error().
		Str(xglog.FieldEvent, fmt.Sprintf("lifecycle.%s_step_failed", phase)).
		Str(xglog.FieldPhase, string(phase)).
		Str(xglog.FieldStep, step).
		Err(err).
		Msg("lifecycle step failed")
	c.currentSink().TrackException(StepError{Phase: phase, Step: step, Err: err})
}

func (c *Controller) trace(message string, severity telemetry.Severity) {
	c.currentSink().TrackTrace(message, severity)
}

func (c *Controller) currentSink() Telemetry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink
}

func (c *Controller) setStateLocked(next State) {
	prev := c.state
	c.state = next
	metrics.SetLifecycleState(next.String())
	c.logger.Debug().
		Str(xglog.FieldEvent, "lifecycle.state_changed").
		Str(xglog.FieldOldState, prev.String()).
		Str(xglog.FieldNewState, next.String()).
		Msg("lifecycle state changed")
}

func (c *Controller) checkHealth(_ context.Context) health.CheckResult {
	if c.State() != StateRunning {
		return health.CheckResult{Status: health.StatusUnhealthy, Message: c.State().String()}
	}
	var missing []string
	for _, res := range []*Resource{c.host, c.watcher, c.admin} {
		if !res.Held() {
			missing = append(missing, res.Name())
		}
	}
	if len(missing) > 0 {
		return health.CheckResult{Status: health.StatusDegraded, Message: fmt.Sprintf("not running: %v", missing)}
	}
	return health.CheckResult{Status: health.StatusHealthy, Message: "running"}
}
