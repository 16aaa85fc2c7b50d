// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the fully merged worker configuration.
type AppConfig struct {
	Version  string `yaml:"-"`
	LogLevel string `yaml:"logLevel"`

	Admin      AdminConfig      `yaml:"admin"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Settings   SettingsConfig   `yaml:"settings"`
}

// AdminConfig configures the administrative HTTP endpoint.
type AdminConfig struct {
	// Protocol is the scheme of the endpoint descriptor ("http" or "https")
	Protocol string `yaml:"protocol"`

	// Addr is the host:port the listener binds to
	Addr string `yaml:"addr"`

	ReadTimeout       time.Duration `yaml:"readTimeout"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`

	// ShutdownTimeout bounds the graceful drain when the endpoint is released
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// MaxConns caps concurrently accepted connections
	MaxConns int `yaml:"maxConns"`

	// RateLimit is requests per minute per client IP, 0 disables limiting
	RateLimit int `yaml:"rateLimit"`

	TLSCert string `yaml:"tlsCert"`
	TLSKey  string `yaml:"tlsKey"`
}

// TelemetryConfig configures the trace/exception sink.
type TelemetryConfig struct {
	Enabled            bool    `yaml:"enabled"`
	InstrumentationKey string  `yaml:"instrumentationKey"`
	Exporter           string  `yaml:"exporter"`
	Endpoint           string  `yaml:"endpoint"`
	SamplingRate       float64 `yaml:"samplingRate"`
	Environment        string  `yaml:"environment"`
}

// ProcessorConfig configures the background processor host and its event stream.
type ProcessorConfig struct {
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`

	BatchSize    int           `yaml:"batchSize"`
	BlockTimeout time.Duration `yaml:"blockTimeout"`

	CheckpointInterval time.Duration `yaml:"checkpointInterval"`

	// EventsPerSecond throttles processing, 0 means unlimited
	EventsPerSecond float64 `yaml:"eventsPerSecond"`
}

// CheckpointConfig selects the checkpoint store backend.
type CheckpointConfig struct {
	// Backend is one of "sqlite", "badger", "file", "memory"
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// SettingsConfig points at the hot-reloaded processor settings file.
type SettingsConfig struct {
	Path     string        `yaml:"path"`
	Debounce time.Duration `yaml:"debounce"`
}
