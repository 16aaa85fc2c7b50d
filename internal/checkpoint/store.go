// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package checkpoint persists snapshots of the processor model.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a checkpoint id is unknown or the store is empty.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidID is returned for ids that are empty or contain characters outside [A-Za-z0-9._-].
	ErrInvalidID = errors.New("invalid checkpoint id")
)

// Checkpoint is one saved model snapshot.
type Checkpoint struct {
	ID         string    `json:"id"`
	Generation uint64    `json:"generation"`
	Offset     string    `json:"offset"` // last acknowledged stream entry id
	Events     int64     `json:"events"`
	Payload    []byte    `json:"payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store saves and loads checkpoints. Save with an existing id replaces it.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Get(ctx context.Context, id string) (*Checkpoint, error)
	Latest(ctx context.Context) (*Checkpoint, error)
	Close() error
}

// NewStore creates a checkpoint store based on the backend.
func NewStore(backend, dir string) (Store, error) {
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		if dir == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Join(dir, "checkpoints.sqlite"))
	case "badger":
		return NewBadgerStore(filepath.Join(dir, "checkpoints.badger"))
	case "file":
		return NewFileStore(dir)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint store backend: %s (supported: sqlite, badger, file, memory)", backend)
	}
}

// ValidateID checks that id is usable as a key and a file name.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || len(id) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if strings.IndexFunc(id, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-')
	}) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func clone(cp *Checkpoint) *Checkpoint {
	out := *cp
	if cp.Payload != nil {
		out.Payload = append([]byte(nil), cp.Payload...)
	}
	return &out
}

// newer reports whether a sorts after b for Latest.
func newer(a, b *Checkpoint) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
