// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/vwworker/internal/admin"
	"github.com/ManuGH/vwworker/internal/health"
	"github.com/ManuGH/vwworker/internal/settings"
	"github.com/ManuGH/vwworker/internal/telemetry"
	"github.com/rs/zerolog"
)

// Telemetry is the sink the controller reports to, plus a flush on stop.
type Telemetry interface {
	telemetry.Sink
	Shutdown(ctx context.Context) error
}

// Host is the processor host as seen by the controller. It is owned by the
// controller and borrowed by the settings watcher and the admin handlers.
type Host interface {
	io.Closer
	admin.Processor
	settings.Reconfigurer
}

// Deps contains the factories the Controller acquires its resources from.
type Deps struct {
	// Logger is the structured logger for the controller
	Logger zerolog.Logger

	// NewTelemetry initialises the telemetry sink. On failure the controller
	// falls back to a log-only sink.
	NewTelemetry func(ctx context.Context) (Telemetry, error)

	// NewHost constructs the processor host
	NewHost func(ctx context.Context) (Host, error)

	// NewWatcher constructs the settings watcher over a borrowed host
	NewWatcher func(ctx context.Context, host Host) (io.Closer, error)

	// StartAdmin binds the admin endpoint over a borrowed host
	StartAdmin func(ctx context.Context, host Host) (io.Closer, error)

	// Health receives a lifecycle checker when set (optional)
	Health *health.Manager
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	switch {
	case d.NewTelemetry == nil:
		return fmt.Errorf("%w: telemetry", ErrMissingFactory)
	case d.NewHost == nil:
		return fmt.Errorf("%w: host", ErrMissingFactory)
	case d.NewWatcher == nil:
		return fmt.Errorf("%w: watcher", ErrMissingFactory)
	case d.StartAdmin == nil:
		return fmt.Errorf("%w: admin", ErrMissingFactory)
	}
	return nil
}
