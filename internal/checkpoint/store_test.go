// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{}
	for _, backend := range []string{"sqlite", "badger", "file", "memory"} {
		s, err := NewStore(backend, t.TempDir())
		require.NoError(t, err, backend)
		t.Cleanup(func() { _ = s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Latest(ctx)
			require.ErrorIs(t, err, ErrNotFound, "empty store")

			_, err = s.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			first := &Checkpoint{ID: "cp-1", Generation: 1, Offset: "1-0", Events: 10, Payload: []byte(`{"a":1}`), CreatedAt: base}
			second := &Checkpoint{ID: "cp-2", Generation: 1, Offset: "2-0", Events: 20, Payload: []byte(`{"a":2}`), CreatedAt: base.Add(time.Minute)}
			require.NoError(t, s.Save(ctx, first))
			require.NoError(t, s.Save(ctx, second))

			got, err := s.Get(ctx, "cp-1")
			require.NoError(t, err)
			if diff := cmp.Diff(first, got); diff != "" {
				t.Fatalf("Get mismatch (-want +got):\n%s", diff)
			}

			latest, err := s.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, "cp-2", latest.ID)

			// Overwrite moves cp-1 to the front.
			first.Events = 30
			first.CreatedAt = base.Add(2 * time.Minute)
			require.NoError(t, s.Save(ctx, first))
			latest, err = s.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, "cp-1", latest.ID)
			assert.Equal(t, int64(30), latest.Events)
		})
	}
}

func TestStoreRejectsInvalidID(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "..", "../escape", "a b", "x/y"} {
				err := s.Save(context.Background(), &Checkpoint{ID: id})
				assert.True(t, errors.Is(err, ErrInvalidID), "id %q: %v", id, err)
			}
		})
	}
}

func TestSqliteStoreReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoints.sqlite")

	s, err := NewSqliteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), &Checkpoint{ID: "persist", CreatedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = NewSqliteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var version int
	require.NoError(t, s.DB.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)

	got, err := s.Get(context.Background(), "persist")
	require.NoError(t, err)
	assert.Equal(t, "persist", got.ID)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), &Checkpoint{ID: "atomic", CreatedAt: time.Now()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "atomic.json", entries[0].Name())
}

func TestNewStoreUnknownBackend(t *testing.T) {
	_, err := NewStore("tape", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown checkpoint store backend")
}

func TestMemoryStoreCopiesPayload(t *testing.T) {
	s := NewMemoryStore()
	cp := &Checkpoint{ID: "m", Payload: []byte("abc")}
	require.NoError(t, s.Save(context.Background(), cp))
	cp.Payload[0] = 'z'

	got, err := s.Get(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got.Payload))
}
