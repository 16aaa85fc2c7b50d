// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package processor hosts the online trainer that folds stream events into
// an in-memory model and checkpoints it.
package processor

import "context"

// Event is one entry read from the event stream.
type Event struct {
	ID    string
	Kind  string
	Key   string
	Value float64
}

// Source delivers events. Read blocks for at most the source's own block
// timeout and returns an empty batch when nothing arrived.
type Source interface {
	Read(ctx context.Context, max int) ([]Event, error)
	Ack(ctx context.Context, ids ...string) error
	Close() error
}
