// SPDX-License-Identifier: MIT

package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/vwworker/internal/metrics"
	"github.com/ManuGH/vwworker/internal/processor"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// Reconfigurer receives settings. *processor.Host satisfies it.
type Reconfigurer interface {
	Reconfigure(ctx context.Context, s processor.Settings) error
}

// Watcher holds a non-owning reference to its Reconfigurer.
type Watcher struct {
	path     string
	debounce time.Duration
	target   Reconfigurer
	logger   zerolog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.RWMutex
	current processor.Settings

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewWatcher applies the settings file once and then watches it. A missing
// file is tolerated (it is picked up when created); an unparsable one is
// an error.
func NewWatcher(path string, debounce time.Duration, target Reconfigurer, logger zerolog.Logger) (*Watcher, error) {
	if target == nil {
		return nil, errors.New("settings watcher requires a target")
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}

	w := &Watcher{
		path:     abs,
		debounce: debounce,
		target:   target,
		logger:   logger,
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.reload(ctx); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cancel()
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file by rename are seen.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		cancel()
		_ = fsw.Close()
		return nil, fmt.Errorf("watch settings dir: %w", err)
	}
	w.fsw = fsw
	w.cancel = cancel

	w.logger.Info().
		Str("event", "settings.watcher_started").
		Str("path", abs).
		Msg("watching settings file for changes")

	go w.watchLoop(ctx)
	return w, nil
}

// Current returns the last successfully applied settings.
func (w *Watcher) Current() processor.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) reload(ctx context.Context) error {
	s, err := Load(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn().
			Str("event", "settings.file_missing").
			Str("path", w.path).
			Msg("settings file not found, keeping current settings")
		return err
	}
	if err == nil {
		err = w.target.Reconfigure(ctx, s)
	}
	metrics.RecordSettingsReload(err)
	if err != nil {
		w.logger.Error().
			Err(err).
			Str("event", "settings.reload_failed").
			Str("path", w.path).
			Msg("settings reload failed, keeping current settings")
		return err
	}

	w.mu.Lock()
	w.current = s
	w.mu.Unlock()

	w.logger.Info().
		Str("event", "settings.reload_success").
		Str("path", w.path).
		Msg("settings applied")
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)

	// Debounce timer to avoid multiple reloads for rapid file changes
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug().
					Str("event", "settings.file_changed").
					Str("op", event.Op.String()).
					Msg("settings file changed")
				debounce.Reset(w.debounce)
			}

		case <-debounce.C:
			_ = w.reload(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str("event", "settings.watcher_error").
				Msg("settings watcher error")
		}
	}
}

// Close stops watching. Safe to call repeatedly.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.fsw.Close()
		<-w.done
		w.logger.Info().Str("event", "settings.watcher_stopped").Msg("settings watcher stopped")
	})
	return w.closeErr
}
