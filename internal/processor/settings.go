// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package processor

import (
	"fmt"
	"time"
)

// Settings are the hot-reloadable knobs of a running host.
type Settings struct {
	Paused             bool               `yaml:"paused" json:"paused"`
	EventsPerSecond    float64            `yaml:"eventsPerSecond" json:"events_per_second"`
	CheckpointInterval time.Duration      `yaml:"checkpointInterval" json:"checkpoint_interval"`
	Model              map[string]float64 `yaml:"model" json:"model,omitempty"`
}

// Validate rejects values the host cannot apply.
func (s Settings) Validate() error {
	if s.EventsPerSecond < 0 {
		return fmt.Errorf("%w: eventsPerSecond must not be negative", ErrInvalidSettings)
	}
	if s.CheckpointInterval < 0 {
		return fmt.Errorf("%w: checkpointInterval must not be negative", ErrInvalidSettings)
	}
	return nil
}
