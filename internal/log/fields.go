// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID    = "request_id"
	FieldCheckpointID = "checkpoint_id"
	FieldEventID      = "event_id"

	// Process / lifecycle fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPhase     = "phase"
	FieldStep      = "step"
	FieldResource  = "resource"
	FieldSeverity  = "severity"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Processor fields
	FieldStream     = "stream"
	FieldGroup      = "group"
	FieldConsumer   = "consumer"
	FieldGeneration = "generation"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration"
	FieldRemote   = "remote_addr"

	// Path / URL fields
	FieldBaseURI = "base_uri"
	FieldFile    = "file"
)
