// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"context"
	"strings"

	"github.com/ManuGH/vwworker/internal/checkpoint"
	"github.com/ManuGH/vwworker/internal/processor"
)

// Processor is the part of the processor host the admin commands use.
// *processor.Host satisfies it.
type Processor interface {
	Reset(ctx context.Context, id string) (processor.Status, error)
	Checkpoint(ctx context.Context, id string) (*checkpoint.Checkpoint, error)
	Status() processor.Status
}

// Controller is one admin command addressed by name.
type Controller interface {
	Name() string
	// Describe answers GET without side effects.
	Describe(ctx context.Context, id string) (any, error)
	// Execute answers POST.
	Execute(ctx context.Context, id string) (any, error)
	// Processor returns the shared, non-owning host reference.
	Processor() Processor
}

// Registry maps controller names to controllers. It is filled once in
// NewRegistry and never modified afterwards.
type Registry struct {
	controllers map[string]Controller
}

// NewRegistry builds the registry with the reset and checkpoint controllers,
// both bound to proc.
func NewRegistry(proc Processor) *Registry {
	reg := &Registry{controllers: make(map[string]Controller, 2)}
	for _, c := range []Controller{NewResetController(proc), NewCheckpointController(proc)} {
		reg.controllers[c.Name()] = c
	}
	return reg
}

// Resolve looks up a controller, ignoring case.
func (r *Registry) Resolve(name string) (Controller, bool) {
	c, ok := r.controllers[strings.ToLower(name)]
	return c, ok
}

// Names lists registered controller names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		out = append(out, name)
	}
	return out
}

// ResetController resets the model, optionally to a saved checkpoint.
type ResetController struct {
	proc Processor
}

// NewResetController binds a reset command to proc.
func NewResetController(proc Processor) *ResetController { return &ResetController{proc: proc} }

// Name returns "reset".
func (c *ResetController) Name() string { return "reset" }

// Processor returns the borrowed host.
func (c *ResetController) Processor() Processor { return c.proc }

// Describe returns the current processor status.
func (c *ResetController) Describe(_ context.Context, _ string) (any, error) {
	return c.proc.Status(), nil
}

// Execute clears the model, or restores checkpoint id when set.
func (c *ResetController) Execute(ctx context.Context, id string) (any, error) {
	return c.proc.Reset(ctx, id)
}

// CheckpointController saves the model under the given or a generated id.
type CheckpointController struct {
	proc Processor
}

// NewCheckpointController binds a checkpoint command to proc.
func NewCheckpointController(proc Processor) *CheckpointController {
	return &CheckpointController{proc: proc}
}

// Name returns "checkpoint".
func (c *CheckpointController) Name() string { return "checkpoint" }

// Processor returns the borrowed host.
func (c *CheckpointController) Processor() Processor { return c.proc }

// Describe reports the last checkpoint id and the event count.
func (c *CheckpointController) Describe(_ context.Context, _ string) (any, error) {
	st := c.proc.Status()
	return map[string]any{"last_checkpoint": st.LastCheckpoint, "events": st.Events}, nil
}

// Execute saves the model under id, or a generated id when empty.
func (c *CheckpointController) Execute(ctx context.Context, id string) (any, error) {
	return c.proc.Checkpoint(ctx, id)
}
