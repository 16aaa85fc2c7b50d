// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "sync"

// StopSignal is a single-fire event with any number of waiters.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal returns an unfired signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Fire sets the signal. Subsequent calls do nothing.
func (s *StopSignal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel that is closed once Fire has been called.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}

// Fired reports whether Fire has been called.
func (s *StopSignal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
