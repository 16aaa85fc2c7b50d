// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package processor

import "errors"

var (
	// ErrUnavailable is returned when a required backing resource (the event
	// stream or the checkpoint store) cannot be reached at construction.
	ErrUnavailable = errors.New("processor resource unavailable")

	// ErrClosed is returned by every Host method once Close has begun.
	ErrClosed = errors.New("processor host closed")

	// ErrInvalidSettings is returned by Reconfigure for out-of-range values.
	ErrInvalidSettings = errors.New("invalid processor settings")
)
