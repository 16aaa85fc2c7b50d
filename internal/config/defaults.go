// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

const (
	DefaultAdminAddr   = "127.0.0.1:8088"
	DefaultMaxConns    = 128
	DefaultStream      = "vwworker:events"
	DefaultGroup       = "vwworker"
	DefaultBackend     = "sqlite"
	DefaultSettingsRel = "settings.yaml"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Admin: AdminConfig{
			Protocol:          "http",
			Addr:              DefaultAdminAddr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			MaxConns:          DefaultMaxConns,
			RateLimit:         120,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		Processor: ProcessorConfig{
			RedisAddr:          "localhost:6379",
			Stream:             DefaultStream,
			Group:              DefaultGroup,
			BatchSize:          64,
			BlockTimeout:       2 * time.Second,
			CheckpointInterval: 5 * time.Minute,
		},
		Checkpoint: CheckpointConfig{
			Backend: DefaultBackend,
			Dir:     "data/checkpoints",
		},
		Settings: SettingsConfig{
			Path:     DefaultSettingsRel,
			Debounce: 500 * time.Millisecond,
		},
	}
}
