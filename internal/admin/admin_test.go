// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vwworker/internal/checkpoint"
	"github.com/ManuGH/vwworker/internal/config"
	"github.com/ManuGH/vwworker/internal/health"
	"github.com/ManuGH/vwworker/internal/processor"
	xgtls "github.com/ManuGH/vwworker/internal/tls"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeProcessor struct {
	mu       sync.Mutex
	resets   []string
	saves    []string
	resetErr error
	saveErr  error
}

func (f *fakeProcessor) Reset(_ context.Context, id string) (processor.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return processor.Status{}, f.resetErr
	}
	f.resets = append(f.resets, id)
	return processor.Status{Generation: uint64(len(f.resets))}, nil
}

func (f *fakeProcessor) Checkpoint(_ context.Context, id string) (*checkpoint.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	if id == "" {
		id = "generated"
	}
	f.saves = append(f.saves, id)
	return &checkpoint.Checkpoint{ID: id}, nil
}

func (f *fakeProcessor) Status() processor.Status {
	return processor.Status{Events: 3, LastCheckpoint: "cp-0"}
}

func startTest(t *testing.T, proc Processor, mutate func(*Options)) *Handle {
	t.Helper()
	opts := Options{
		Endpoint:        Endpoint{Protocol: "http", Addr: "127.0.0.1:0"},
		Processor:       proc,
		Logger:          zerolog.Nop(),
		Health:          health.NewManager("test"),
		ShutdownTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h, err := Start(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func do(t *testing.T, method, url string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func TestEndpointBaseURI(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8088", Endpoint{Protocol: "http", Addr: "127.0.0.1:8088"}.BaseURI())
	assert.Equal(t, "https://[::1]:443", Endpoint{Protocol: "HTTPS", Addr: "[::1]:443"}.BaseURI())
	assert.Equal(t, "http://:9", Endpoint{Addr: ":9"}.BaseURI())
}

func TestRegistryHasExactlyTwoControllers(t *testing.T) {
	proc := &fakeProcessor{}
	reg := NewRegistry(proc)

	assert.ElementsMatch(t, []string{"reset", "checkpoint"}, reg.Names())
	for _, name := range []string{"reset", "Reset", "CHECKPOINT"} {
		c, ok := reg.Resolve(name)
		require.True(t, ok, name)
		assert.Same(t, proc, c.Processor(), "controllers share the host reference")
	}
	_, ok := reg.Resolve("shutdown")
	assert.False(t, ok)
}

func TestCommandRoutes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	proc := &fakeProcessor{}
	h := startTest(t, proc, nil)
	base := h.BaseURI()
	assert.True(t, strings.HasPrefix(base, "http://127.0.0.1:"))

	code, body := do(t, http.MethodPost, base+"/reset/5")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reset", body["controller"])
	assert.Equal(t, "5", body["id"])

	code, _ = do(t, http.MethodPost, base+"/Reset")
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, http.MethodPost, base+"/checkpoint")
	require.Equal(t, http.StatusOK, code)
	result := body["result"].(map[string]any)
	assert.Equal(t, "generated", result["id"])

	code, body = do(t, http.MethodGet, base+"/checkpoint")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cp-0", body["result"].(map[string]any)["last_checkpoint"])

	proc.mu.Lock()
	assert.Equal(t, []string{"5", ""}, proc.resets)
	assert.Equal(t, []string{"generated"}, proc.saves)
	proc.mu.Unlock()

	require.NoError(t, h.Close())
}

func TestRoutingErrors(t *testing.T) {
	proc := &fakeProcessor{}
	h := startTest(t, proc, nil)
	base := h.BaseURI()

	code, body := do(t, http.MethodPost, base+"/shutdown")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown_controller", body["error"])

	code, _ = do(t, http.MethodPut, base+"/reset/1")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	code, _ = do(t, http.MethodDelete, base+"/checkpoint")
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = do(t, http.MethodGet, base+"/reset/1/extra")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("reset to x: %w", checkpoint.ErrNotFound), http.StatusNotFound},
		{"invalid id", checkpoint.ErrInvalidID, http.StatusBadRequest},
		{"closed", processor.ErrClosed, http.StatusServiceUnavailable},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := startTest(t, &fakeProcessor{resetErr: tt.err}, nil)
			code, body := do(t, http.MethodPost, h.BaseURI()+"/reset/x")
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestInfraRoutes(t *testing.T) {
	h := startTest(t, &fakeProcessor{}, nil)

	code, body := do(t, http.MethodGet, h.BaseURI()+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, _ = do(t, http.MethodGet, h.BaseURI()+"/readyz")
	assert.Equal(t, http.StatusOK, code)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(h.BaseURI() + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "vwworker_admin_http_requests_total")
}

func TestRateLimited(t *testing.T) {
	h := startTest(t, &fakeProcessor{}, func(o *Options) { o.RateLimit = 1 })

	code, _ := do(t, http.MethodGet, h.BaseURI()+"/reset")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, http.MethodGet, h.BaseURI()+"/reset")
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestCloseReleasesBinding(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := startTest(t, &fakeProcessor{}, nil)
	addr := h.Addr().String()

	code, _ := do(t, http.MethodPost, h.BaseURI()+"/reset/5")
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "second close is a no-op")

	_, err := net.DialTimeout("tcp", addr, time.Second)
	require.Error(t, err, "listener must be released")

	// The port can be bound again.
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	_ = ln.Close()
}

func TestStartFailures(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()

	_, err = Start(context.Background(), Options{
		Endpoint:  Endpoint{Protocol: "http", Addr: busy.Addr().String()},
		Processor: &fakeProcessor{},
		Logger:    zerolog.Nop(),
	})
	require.Error(t, err, "bind conflict must surface from Start")

	_, err = Start(context.Background(), Options{
		Endpoint:  Endpoint{Protocol: "gopher", Addr: "127.0.0.1:0"},
		Processor: &fakeProcessor{},
	})
	require.Error(t, err)

	_, err = Start(context.Background(), Options{
		Endpoint:    Endpoint{Protocol: "https", Addr: "127.0.0.1:0"},
		Processor:   &fakeProcessor{},
		TLSCertFile: "/nonexistent/cert.pem",
		TLSKeyFile:  "/nonexistent/key.pem",
	})
	require.Error(t, err)

	_, err = Start(context.Background(), Options{Endpoint: Endpoint{Addr: "127.0.0.1:0"}})
	require.Error(t, err, "processor is required")
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Defaults().Admin)
	assert.Equal(t, config.DefaultMaxConns, opts.MaxConns)
	assert.Equal(t, Endpoint{Protocol: "http", Addr: config.DefaultAdminAddr}, opts.Endpoint)

	h := startTest(t, &fakeProcessor{}, func(o *Options) { o.MaxConns = 0 })
	assert.NotNil(t, h.Registry())
}

func TestStartHTTPS(t *testing.T) {
	dir := t.TempDir()
	cert, key := filepath.Join(dir, "admin.crt"), filepath.Join(dir, "admin.key")
	require.NoError(t, xgtls.GenerateSelfSigned(cert, key, nil, time.Hour))

	h := startTest(t, &fakeProcessor{}, func(o *Options) {
		o.Endpoint = Endpoint{Protocol: "https", Addr: "127.0.0.1:0"}
		o.TLSCertFile = cert
		o.TLSKeyFile = key
	})
	assert.True(t, strings.HasPrefix(h.BaseURI(), "https://127.0.0.1:"))

	client := &http.Client{
		Timeout: 2 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
			// #nosec G402 -- self-signed test certificate
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	resp, err := client.Get(h.BaseURI() + "/reset")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, resp.TLS)
}
