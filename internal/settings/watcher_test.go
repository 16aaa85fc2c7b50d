// SPDX-License-Identifier: MIT

package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vwworker/internal/processor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu      sync.Mutex
	applied []processor.Settings
	fail    error
}

func (r *recorder) Reconfigure(_ context.Context, s processor.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.applied = append(r.applied, s)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

func (r *recorder) last() processor.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied[len(r.applied)-1]
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte("paused: true\neventsPerSecond: 5\ncheckpointInterval: 1m\nmodel:\n  alpha: 0.1\n"))
	require.NoError(t, err)
	assert.True(t, s.Paused)
	assert.Equal(t, 5.0, s.EventsPerSecond)
	assert.Equal(t, time.Minute, s.CheckpointInterval)
	assert.Equal(t, 0.1, s.Model["alpha"])

	_, err = Parse([]byte("speed: 11\n"))
	require.Error(t, err)

	_, err = Parse([]byte("eventsPerSecond: -2\n"))
	require.ErrorIs(t, err, processor.ErrInvalidSettings)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, processor.Settings{}, empty)
}

func TestWatcherAppliesInitialAndChangedSettings(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "eventsPerSecond: 10\n")

	rec := &recorder{}
	w, err := NewWatcher(path, 20*time.Millisecond, rec, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, 10.0, w.Current().EventsPerSecond)

	writeFile(t, path, "eventsPerSecond: 20\npaused: true\n")
	require.Eventually(t, func() bool {
		return rec.count() >= 2 && rec.last().EventsPerSecond == 20
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, w.Current().Paused)
}

func TestWatcherKeepsSettingsOnInvalidChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "eventsPerSecond: 3\n")

	rec := &recorder{}
	w, err := NewWatcher(path, 20*time.Millisecond, rec, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	writeFile(t, path, "eventsPerSecond: [broken\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 3.0, w.Current().EventsPerSecond)
}

func TestWatcherMissingFileIsPickedUpLater(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "settings.yaml")
	rec := &recorder{}
	w, err := NewWatcher(path, 20*time.Millisecond, rec, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	assert.Equal(t, 0, rec.count())

	writeFile(t, path, "paused: true\n")
	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestNewWatcherFailures(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "settings.yaml")
	writeFile(t, bad, "unknown: 1\n")

	_, err := NewWatcher(bad, 0, &recorder{}, zerolog.Nop())
	require.Error(t, err, "unparsable initial file")

	good := filepath.Join(dir, "ok.yaml")
	writeFile(t, good, "paused: false\n")
	_, err = NewWatcher(good, 0, &recorder{fail: errors.New("host closed")}, zerolog.Nop())
	require.Error(t, err, "target rejecting initial settings")

	_, err = NewWatcher(filepath.Join(dir, "missing", "dir", "s.yaml"), 0, &recorder{}, zerolog.Nop())
	require.Error(t, err, "unwatchable directory")

	_, err = NewWatcher(good, 0, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestWatcherCloseIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "settings.yaml")
	w, err := NewWatcher(path, 0, &recorder{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
