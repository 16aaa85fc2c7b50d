// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore implements Store using a map (thread-safe).
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Checkpoint
}

// NewMemoryStore creates an in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*Checkpoint)}
}

func (s *MemoryStore) Save(_ context.Context, cp *Checkpoint) error {
	if err := ValidateID(cp.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy to avoid race if caller modifies the checkpoint later
	s.data[cp.ID] = clone(cp)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cp, ok := s.data[id]; ok {
		return clone(cp), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Latest(_ context.Context) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *Checkpoint
	for _, cp := range s.data {
		if best == nil || newer(cp, best) {
			best = cp
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return clone(best), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.data = make(map[string]*Checkpoint)
	s.mu.Unlock()
	return nil
}
