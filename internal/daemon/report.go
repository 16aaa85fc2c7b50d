// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"errors"
	"fmt"
)

// Phase names the lifecycle operation a StepError belongs to.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseRun   Phase = "run"
	PhaseStop  Phase = "stop"
)

// StepError is one contained failure.
type StepError struct {
	Phase Phase
	Step  string
	Err   error
}

func (e StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Step, e.Err)
}

func (e StepError) Unwrap() error { return e.Err }

// Report collects the failures contained by Start, Run or Stop. A zero
// Report means every step succeeded.
type Report struct {
	Steps []StepError
}

// OK reports whether no step failed.
func (r Report) OK() bool { return len(r.Steps) == 0 }

// Err joins all step failures, or returns nil.
func (r Report) Err() error {
	if len(r.Steps) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Steps))
	for _, s := range r.Steps {
		errs = append(errs, s)
	}
	return errors.Join(errs...)
}

// Failed reports whether step failed in phase.
func (r Report) Failed(phase Phase, step string) bool {
	for _, s := range r.Steps {
		if s.Phase == phase && s.Step == step {
			return true
		}
	}
	return false
}

func (r *Report) add(phase Phase, step string, err error) {
	r.Steps = append(r.Steps, StepError{Phase: phase, Step: step, Err: err})
}
