// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/vwworker/internal/validate"
	"github.com/rs/zerolog"
)

// Validate validates an AppConfig using the centralized validation package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", err.Error(), cfg.LogLevel)
	}

	// Admin endpoint
	v.OneOf("admin.protocol", cfg.Admin.Protocol, "http", "https")
	v.HostPort("admin.addr", cfg.Admin.Addr)
	v.Range("admin.maxConns", cfg.Admin.MaxConns, 1, 65535)
	v.Range("admin.rateLimit", cfg.Admin.RateLimit, 0, 1_000_000)
	v.PositiveDuration("admin.shutdownTimeout", cfg.Admin.ShutdownTimeout)
	v.Pair("admin.tlsCert", cfg.Admin.TLSCert, "admin.tlsKey", cfg.Admin.TLSKey)
	if cfg.Admin.Protocol == "https" && cfg.Admin.TLSCert == "" {
		v.AddError("admin.tlsCert", "https requires tlsCert and tlsKey", "")
	}

	// Telemetry (only checked when enabled)
	if cfg.Telemetry.Enabled {
		v.NotEmpty("telemetry.instrumentationKey", cfg.Telemetry.InstrumentationKey)
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, "grpc", "http")
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	// Processor
	v.HostPort("processor.redisAddr", cfg.Processor.RedisAddr)
	v.Range("processor.redisDB", cfg.Processor.RedisDB, 0, 15)
	v.NotEmpty("processor.stream", cfg.Processor.Stream)
	v.NotEmpty("processor.group", cfg.Processor.Group)
	v.Range("processor.batchSize", cfg.Processor.BatchSize, 1, 10_000)
	v.PositiveDuration("processor.blockTimeout", cfg.Processor.BlockTimeout)
	v.PositiveDuration("processor.checkpointInterval", cfg.Processor.CheckpointInterval)
	if cfg.Processor.EventsPerSecond < 0 {
		v.AddError("processor.eventsPerSecond", "must not be negative", cfg.Processor.EventsPerSecond)
	}

	// Checkpoints
	v.OneOf("checkpoint.backend", cfg.Checkpoint.Backend, "sqlite", "badger", "file", "memory")
	if cfg.Checkpoint.Backend != "memory" {
		v.NotEmpty("checkpoint.dir", cfg.Checkpoint.Dir)
	}

	// Settings watcher
	v.NotEmpty("settings.path", cfg.Settings.Path)
	v.PositiveDuration("settings.debounce", cfg.Settings.Debounce)

	return v.Err()
}
