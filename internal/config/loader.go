// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader merges defaults, an optional YAML file and the environment.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. An empty configPath means ENV-only configuration.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load returns the validated configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
		l.resolveRelative(&cfg)
	}

	l.mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// loadFile decodes path over dst. Keys absent from the file keep their current values.
func (l *Loader) loadFile(path string, dst *AppConfig) error {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if isYAMLUnknownFieldError(err) {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// resolveRelative anchors relative data paths at the config file's directory.
func (l *Loader) resolveRelative(cfg *AppConfig) {
	base := filepath.Dir(l.configPath)
	if cfg.Settings.Path != "" && !filepath.IsAbs(cfg.Settings.Path) {
		cfg.Settings.Path = filepath.Join(base, cfg.Settings.Path)
	}
	if cfg.Checkpoint.Dir != "" && !filepath.IsAbs(cfg.Checkpoint.Dir) {
		cfg.Checkpoint.Dir = filepath.Join(base, cfg.Checkpoint.Dir)
	}
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = ParseString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)

	a := &cfg.Admin
	a.Protocol = ParseString(EnvPrefix+"ADMIN_PROTOCOL", a.Protocol)
	a.Addr = ParseString(EnvPrefix+"ADMIN_ADDR", a.Addr)
	a.ReadTimeout = ParseDuration(EnvPrefix+"ADMIN_READ_TIMEOUT", a.ReadTimeout)
	a.WriteTimeout = ParseDuration(EnvPrefix+"ADMIN_WRITE_TIMEOUT", a.WriteTimeout)
	a.IdleTimeout = ParseDuration(EnvPrefix+"ADMIN_IDLE_TIMEOUT", a.IdleTimeout)
	a.ShutdownTimeout = ParseDuration(EnvPrefix+"ADMIN_SHUTDOWN_TIMEOUT", a.ShutdownTimeout)
	a.MaxConns = ParseInt(EnvPrefix+"ADMIN_MAX_CONNS", a.MaxConns)
	a.RateLimit = ParseInt(EnvPrefix+"ADMIN_RATE_LIMIT", a.RateLimit)
	a.TLSCert = ParseString(EnvPrefix+"ADMIN_TLS_CERT", a.TLSCert)
	a.TLSKey = ParseString(EnvPrefix+"ADMIN_TLS_KEY", a.TLSKey)

	t := &cfg.Telemetry
	t.Enabled = ParseBool(EnvPrefix+"TELEMETRY_ENABLED", t.Enabled)
	t.InstrumentationKey = ParseString(EnvPrefix+"TELEMETRY_INSTRUMENTATION_KEY", t.InstrumentationKey)
	t.Exporter = strings.ToLower(ParseString(EnvPrefix+"TELEMETRY_EXPORTER", t.Exporter))
	t.Endpoint = ParseString(EnvPrefix+"TELEMETRY_ENDPOINT", t.Endpoint)
	t.SamplingRate = ParseFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", t.SamplingRate)
	t.Environment = ParseString(EnvPrefix+"TELEMETRY_ENVIRONMENT", t.Environment)

	p := &cfg.Processor
	p.RedisAddr = ParseString(EnvPrefix+"REDIS_ADDR", p.RedisAddr)
	p.RedisPassword = ParseString(EnvPrefix+"REDIS_PASSWORD", p.RedisPassword)
	p.RedisDB = ParseInt(EnvPrefix+"REDIS_DB", p.RedisDB)
	p.Stream = ParseString(EnvPrefix+"STREAM", p.Stream)
	p.Group = ParseString(EnvPrefix+"STREAM_GROUP", p.Group)
	p.Consumer = ParseString(EnvPrefix+"STREAM_CONSUMER", p.Consumer)
	p.BatchSize = ParseInt(EnvPrefix+"BATCH_SIZE", p.BatchSize)
	p.BlockTimeout = ParseDuration(EnvPrefix+"BLOCK_TIMEOUT", p.BlockTimeout)
	p.CheckpointInterval = ParseDuration(EnvPrefix+"CHECKPOINT_INTERVAL", p.CheckpointInterval)
	p.EventsPerSecond = ParseFloat(EnvPrefix+"EVENTS_PER_SECOND", p.EventsPerSecond)

	c := &cfg.Checkpoint
	c.Backend = strings.ToLower(ParseString(EnvPrefix+"CHECKPOINT_BACKEND", c.Backend))
	c.Dir = ParseString(EnvPrefix+"CHECKPOINT_DIR", c.Dir)

	s := &cfg.Settings
	s.Path = ParseString(EnvPrefix+"SETTINGS_PATH", s.Path)
	s.Debounce = ParseDuration(EnvPrefix+"SETTINGS_DEBOUNCE", s.Debounce)
}

func isYAMLUnknownFieldError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "field") && strings.Contains(msg, "not found")
}
