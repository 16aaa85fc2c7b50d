// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ManuGH/vwworker/internal/checkpoint"
	"github.com/ManuGH/vwworker/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultBatchSize          = 64
	defaultCheckpointInterval = 5 * time.Minute
	readErrorBackoff          = time.Second
	pausePoll                 = 100 * time.Millisecond
)

// Options configure a Host. Source, Store and Model are owned by the host
// from NewHost on and closed by Host.Close.
type Options struct {
	Source Source
	Store  checkpoint.Store
	Model  Model
	Logger zerolog.Logger

	BatchSize          int
	CheckpointInterval time.Duration
	EventsPerSecond    float64

	// Now defaults to time.Now
	Now func() time.Time
}

// Status is a point-in-time view of the host.
type Status struct {
	Generation         uint64        `json:"generation"`
	Events             int64         `json:"events"`
	Offset             string        `json:"offset"`
	Paused             bool          `json:"paused"`
	EventsPerSecond    float64       `json:"events_per_second"`
	CheckpointInterval time.Duration `json:"checkpoint_interval"`
	LastCheckpoint     string        `json:"last_checkpoint,omitempty"`
}

// Host runs the processing loop. All methods are safe for concurrent use.
type Host struct {
	source Source
	store  checkpoint.Store
	logger zerolog.Logger
	now    func() time.Time
	batch  int

	limiter    *rate.Limiter
	intervalCh chan time.Duration

	mu       sync.Mutex
	model    Model
	gen      uint64
	events   int64
	offset   string
	dirty    bool
	paused   bool
	eps      float64
	interval time.Duration
	lastCP   string
	closed   bool

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// NewHost restores the latest checkpoint, if any, and starts processing.
func NewHost(opts Options) (*Host, error) {
	if opts.Source == nil || opts.Store == nil || opts.Model == nil {
		return nil, errors.New("processor: source, store and model are required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = defaultCheckpointInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Host{
		source:     opts.Source,
		store:      opts.Store,
		logger:     opts.Logger,
		now:        opts.Now,
		batch:      opts.BatchSize,
		limiter:    rate.NewLimiter(limitFor(opts.EventsPerSecond), burstFor(opts.EventsPerSecond)),
		intervalCh: make(chan time.Duration, 1),
		model:      opts.Model,
		eps:        opts.EventsPerSecond,
		interval:   opts.CheckpointInterval,
	}

	if err := h.restoreLatest(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	h.cancel = cancel
	h.group = g
	g.Go(func() error { return h.readLoop(gctx) })
	g.Go(func() error { return h.checkpointLoop(gctx) })

	h.logger.Info().
		Str("event", "processor.started").
		Uint64("generation", h.gen).
		Int("batch_size", h.batch).
		Dur("checkpoint_interval", h.interval).
		Msg("processor host started")
	return h, nil
}

func (h *Host) restoreLatest() error {
	cp, err := h.store.Latest(context.Background())
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read latest checkpoint: %v", ErrUnavailable, err)
	}
	if err := h.model.Restore(cp.Payload); err != nil {
		return fmt.Errorf("restore checkpoint %s: %w", cp.ID, err)
	}
	h.gen = cp.Generation
	h.events = cp.Events
	h.offset = cp.Offset
	h.lastCP = cp.ID
	metrics.SetModelGeneration(h.gen)
	h.logger.Info().
		Str("event", "processor.restored").
		Str("checkpoint_id", cp.ID).
		Int64("events", cp.Events).
		Msg("restored model from checkpoint")
	return nil
}

func (h *Host) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if h.isPaused() {
			if !sleepCtx(ctx, pausePoll) {
				return nil
			}
			continue
		}

		batch, err := h.source.Read(ctx, h.batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.IncEventReadError()
			h.logger.Warn().Err(err).Str("event", "processor.read_failed").Msg("event source read failed")
			if !sleepCtx(ctx, readErrorBackoff) {
				return nil
			}
			continue
		}

		ids := make([]string, 0, len(batch))
		for _, ev := range batch {
			if err := h.limiter.Wait(ctx); err != nil {
				break
			}
			h.apply(ev)
			ids = append(ids, ev.ID)
		}
		if len(ids) == 0 {
			continue
		}
		metrics.AddEventsProcessed(len(ids))

		// Ack with a detached context so a shutdown does not redeliver applied events.
		ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		if err := h.source.Ack(ackCtx, ids...); err != nil {
			h.logger.Warn().Err(err).Str("event", "processor.ack_failed").Int("count", len(ids)).Msg("event ack failed")
		}
		cancel()
	}
}

func (h *Host) checkpointLoop(ctx context.Context) error {
	h.mu.Lock()
	interval := h.interval
	h.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-h.intervalCh:
			ticker.Reset(d)
		case <-ticker.C:
			h.mu.Lock()
			if h.closed || !h.dirty {
				h.mu.Unlock()
				continue
			}
			_, err := h.saveLocked(ctx, "", "periodic")
			h.mu.Unlock()
			if err != nil {
				h.logger.Error().Err(err).Str("event", "processor.checkpoint_failed").Msg("periodic checkpoint failed")
			}
		}
	}
}

func (h *Host) apply(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.model.Apply(ev)
	h.events++
	h.offset = ev.ID
	h.dirty = true
}

func (h *Host) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Host) isPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// Reset starts a new model generation. An empty id clears the model, any
// other id restores that checkpoint (checkpoint.ErrNotFound if unknown).
// Clearing keeps the stream offset; restoring rewinds it to the checkpoint.
func (h *Host) Reset(ctx context.Context, id string) (Status, error) {
	var cp *checkpoint.Checkpoint
	if id != "" {
		// The store is closed with the host.
		if h.isClosed() {
			return Status{}, ErrClosed
		}
		var err error
		if cp, err = h.store.Get(ctx, id); err != nil {
			return Status{}, fmt.Errorf("reset to %s: %w", id, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Status{}, ErrClosed
	}

	if cp == nil {
		h.model.Clear()
		h.events = 0
	} else {
		if err := h.model.Restore(cp.Payload); err != nil {
			return Status{}, fmt.Errorf("reset to %s: %w", id, err)
		}
		h.events = cp.Events
		h.offset = cp.Offset
	}
	h.gen++
	h.dirty = true
	metrics.SetModelGeneration(h.gen)

	h.logger.Info().
		Str("event", "processor.reset").
		Str("checkpoint_id", id).
		Uint64("generation", h.gen).
		Msg("model reset")
	return h.statusLocked(), nil
}

// Checkpoint saves the model under id, generating one when id is empty.
// The returned checkpoint carries no payload.
func (h *Host) Checkpoint(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id != "" {
		if err := checkpoint.ValidateID(id); err != nil {
			return nil, err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	return h.saveLocked(ctx, id, "admin")
}

func (h *Host) saveLocked(ctx context.Context, id, trigger string) (*checkpoint.Checkpoint, error) {
	now := h.now().UTC()
	if id == "" {
		id = now.Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	}
	payload, err := h.model.Snapshot()
	if err != nil {
		metrics.RecordCheckpoint(trigger, err)
		return nil, fmt.Errorf("snapshot model: %w", err)
	}
	cp := &checkpoint.Checkpoint{
		ID:         id,
		Generation: h.gen,
		Offset:     h.offset,
		Events:     h.events,
		Payload:    payload,
		CreatedAt:  now,
	}
	err = h.store.Save(ctx, cp)
	metrics.RecordCheckpoint(trigger, err)
	if err != nil {
		return nil, fmt.Errorf("save checkpoint %s: %w", id, err)
	}
	h.lastCP = id
	h.dirty = false

	h.logger.Info().
		Str("event", "processor.checkpoint_saved").
		Str("checkpoint_id", id).
		Str("trigger", trigger).
		Int64("events", h.events).
		Msg("checkpoint saved")

	cp.Payload = nil
	return cp, nil
}

// Reconfigure applies new settings to the running host.
func (h *Host) Reconfigure(_ context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if err := h.model.Configure(s.Model); err != nil {
		return err
	}

	h.paused = s.Paused
	if s.EventsPerSecond != h.eps {
		h.eps = s.EventsPerSecond
		h.limiter.SetLimit(limitFor(s.EventsPerSecond))
		h.limiter.SetBurst(burstFor(s.EventsPerSecond))
	}
	if s.CheckpointInterval > 0 && s.CheckpointInterval != h.interval {
		h.interval = s.CheckpointInterval
		select {
		case <-h.intervalCh:
		default:
		}
		h.intervalCh <- s.CheckpointInterval
	}

	h.logger.Info().
		Str("event", "processor.reconfigured").
		Bool("paused", h.paused).
		Float64("events_per_second", h.eps).
		Dur("checkpoint_interval", h.interval).
		Msg("processor settings applied")
	return nil
}

// Status reports the current host state. It keeps working after Close.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

func (h *Host) statusLocked() Status {
	return Status{
		Generation:         h.gen,
		Events:             h.events,
		Offset:             h.offset,
		Paused:             h.paused,
		EventsPerSecond:    h.eps,
		CheckpointInterval: h.interval,
		LastCheckpoint:     h.lastCP,
	}
}

// Close stops the loop, writes a final checkpoint when there is unsaved
// progress and closes the source and the store. Safe to call repeatedly.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		h.cancel()
		errs := []error{h.group.Wait()}

		h.mu.Lock()
		events := h.events
		if h.dirty {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := h.saveLocked(ctx, "", "final"); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		h.mu.Unlock()

		if err := h.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
		if err := h.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close checkpoint store: %w", err))
		}
		h.closeErr = errors.Join(errs...)

		h.logger.Info().
			Str("event", "processor.closed").
			Int64("events", events).
			Msg("processor host closed")
	})
	return h.closeErr
}

func limitFor(eps float64) rate.Limit {
	if eps <= 0 {
		return rate.Inf
	}
	return rate.Limit(eps)
}

func burstFor(eps float64) int {
	if eps <= 1 {
		return 1
	}
	return int(math.Ceil(eps))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
