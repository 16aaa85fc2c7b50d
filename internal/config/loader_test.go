// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/vwworker/internal/validate"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v1.2.3"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, DefaultMaxConns, cfg.Admin.MaxConns)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
admin:
  addr: "0.0.0.0:9090"
  shutdownTimeout: 2s
processor:
  stream: clicks
  checkpointInterval: 30s
checkpoint:
  backend: badger
  dir: state
settings:
  path: runtime.yaml
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9090", cfg.Admin.Addr)
	assert.Equal(t, 2*time.Second, cfg.Admin.ShutdownTimeout)
	assert.Equal(t, "http", cfg.Admin.Protocol, "unset keys keep defaults")
	assert.Equal(t, "clicks", cfg.Processor.Stream)
	assert.Equal(t, 30*time.Second, cfg.Processor.CheckpointInterval)
	assert.Equal(t, "badger", cfg.Checkpoint.Backend)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "state"), cfg.Checkpoint.Dir)
	assert.Equal(t, filepath.Join(dir, "runtime.yaml"), cfg.Settings.Path)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "admin:\n  bindAddress: \":1\"\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "").Load()
	require.ErrorIs(t, err, ErrMultipleDocuments)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminAddr, cfg.Admin.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "admin:\n  addr: \"127.0.0.1:7000\"\n")
	t.Setenv("VWW_ADMIN_ADDR", "127.0.0.1:7001")
	t.Setenv("VWW_ADMIN_MAX_CONNS", "16")
	t.Setenv("VWW_TELEMETRY_SAMPLING_RATE", "0.25")
	t.Setenv("VWW_CHECKPOINT_BACKEND", "MEMORY")
	t.Setenv("VWW_SETTINGS_DEBOUNCE", "1s")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7001", cfg.Admin.Addr)
	assert.Equal(t, 16, cfg.Admin.MaxConns)
	assert.InDelta(t, 0.25, cfg.Telemetry.SamplingRate, 1e-9)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, time.Second, cfg.Settings.Debounce)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Admin.Protocol = "gopher"
	cfg.Admin.MaxConns = 0
	cfg.Telemetry.Enabled = true
	cfg.Checkpoint.Backend = "tape"

	err := Validate(cfg)
	require.Error(t, err)

	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := map[string]bool{}
	for _, e := range verr.Errors() {
		fields[e.Field] = true
	}
	for _, f := range []string{"admin.protocol", "admin.maxConns", "telemetry.instrumentationKey", "checkpoint.backend"} {
		assert.True(t, fields[f], "missing error for %s", f)
	}
}

func TestValidateHTTPSRequiresCert(t *testing.T) {
	cfg := Defaults()
	cfg.Admin.Protocol = "https"
	require.Error(t, Validate(cfg))

	cfg.Admin.TLSCert = "cert.pem"
	cfg.Admin.TLSKey = "key.pem"
	require.NoError(t, Validate(cfg))
}
