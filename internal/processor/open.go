// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package processor

import (
	"context"
	"fmt"

	"github.com/ManuGH/vwworker/internal/checkpoint"
	"github.com/ManuGH/vwworker/internal/config"
	"github.com/rs/zerolog"
)

// Open builds a Host from configuration: a Redis stream source, the
// configured checkpoint store and a MeanModel. Unreachable backends yield
// ErrUnavailable; nothing is left open on failure.
func Open(ctx context.Context, pc config.ProcessorConfig, cc config.CheckpointConfig, logger zerolog.Logger) (*Host, error) {
	src, err := NewRedisSource(ctx, RedisConfig{
		Addr:     pc.RedisAddr,
		Password: pc.RedisPassword,
		DB:       pc.RedisDB,
		Stream:   pc.Stream,
		Group:    pc.Group,
		Consumer: pc.Consumer,
		Block:    pc.BlockTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := checkpoint.NewStore(cc.Backend, cc.Dir)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("%w: open checkpoint store: %v", ErrUnavailable, err)
	}

	h, err := NewHost(Options{
		Source:             src,
		Store:              store,
		Model:              NewMeanModel(),
		Logger:             logger,
		BatchSize:          pc.BatchSize,
		CheckpointInterval: pc.CheckpointInterval,
		EventsPerSecond:    pc.EventsPerSecond,
	})
	if err != nil {
		_ = src.Close()
		_ = store.Close()
		return nil, err
	}
	return h, nil
}
