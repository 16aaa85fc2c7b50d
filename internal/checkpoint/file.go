// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// FileStore writes one JSON document per checkpoint into a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file checkpoint store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the checkpoint atomically; readers never observe a partial file.
func (s *FileStore) Save(_ context.Context, cp *Checkpoint) error {
	if err := ValidateID(cp.ID); err != nil {
		return err
	}
	buf, err := json.Marshal(cp)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(s.path(cp.ID), renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending checkpoint file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(buf); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (*Checkpoint, error) {
	if err := ValidateID(id); err != nil {
		return nil, ErrNotFound
	}
	return readCheckpointFile(s.path(id))
}

func (s *FileStore) Latest(_ context.Context) (*Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var best *Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		cp, err := readCheckpointFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if best == nil || newer(cp, best) {
			best = cp
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (s *FileStore) Close() error { return nil }

func readCheckpointFile(path string) (*Checkpoint, error) {
	// #nosec G304 -- path is built from a validated id inside the store directory
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", filepath.Base(path), err)
	}
	return &cp, nil
}
