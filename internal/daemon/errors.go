// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when logger is not provided
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingFactory is returned when one of the resource factories is nil
	ErrMissingFactory = errors.New("resource factory is required")

	// ErrAlreadyStarted is reported by a second Start
	ErrAlreadyStarted = errors.New("controller already started")

	// ErrStopped is reported by Start after Stop
	ErrStopped = errors.New("controller stopped")

	// ErrProcessorUnavailable is reported for steps skipped because the processor host is absent
	ErrProcessorUnavailable = errors.New("processor host unavailable")
)
