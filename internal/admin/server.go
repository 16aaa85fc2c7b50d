// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/vwworker/internal/admin/middleware"
	"github.com/ManuGH/vwworker/internal/config"
	"github.com/ManuGH/vwworker/internal/health"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
)

// Options configure Start.
type Options struct {
	Endpoint  Endpoint
	Processor Processor
	Logger    zerolog.Logger
	Health    *health.Manager

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// MaxConns caps concurrently accepted connections, default 128
	MaxConns int
	// RateLimit is requests per minute per client IP, 0 disables
	RateLimit int

	TLSCertFile string
	TLSKeyFile  string

	// TracingService enables otelhttp spans when non-empty
	TracingService string
}

// OptionsFromConfig maps the admin config section onto Options.
func OptionsFromConfig(cfg config.AdminConfig) Options {
	return Options{
		Endpoint:          Endpoint{Protocol: cfg.Protocol, Addr: cfg.Addr},
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		MaxConns:          cfg.MaxConns,
		RateLimit:         cfg.RateLimit,
		TLSCertFile:       cfg.TLSCert,
		TLSKeyFile:        cfg.TLSKey,
	}
}

// Handle is the running admin listener.
type Handle struct {
	srv             *http.Server
	addr            net.Addr
	baseURI         string
	registry        *Registry
	logger          zerolog.Logger
	shutdownTimeout time.Duration
	serveErr        chan error

	closeOnce sync.Once
	closeErr  error
}

// Start binds the listener synchronously and serves in the background.
// When Start returns without error the listener is accepting connections.
func Start(ctx context.Context, opts Options) (*Handle, error) {
	if opts.Processor == nil {
		return nil, errors.New("admin: processor reference is required")
	}
	if err := opts.Endpoint.validate(); err != nil {
		return nil, err
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = config.DefaultMaxConns
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	var tlsCfg *tls.Config
	if opts.Endpoint.Secure() {
		cert, err := tls.LoadX509KeyPair(opts.TLSCertFile, opts.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("admin: load TLS key pair: %w", err)
		}
		tlsCfg = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}

	reg := NewRegistry(opts.Processor)
	handler := newRouter(reg, opts.Health, middleware.StackConfig{
		TracingService: opts.TracingService,
		RateLimit:      opts.RateLimit,
	})

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", opts.Endpoint.Addr)
	if err != nil {
		return nil, fmt.Errorf("admin: bind %s: %w", opts.Endpoint.Addr, err)
	}
	addr := ln.Addr()
	ln = netutil.LimitListener(ln, opts.MaxConns)
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}

	h := &Handle{
		srv:             srv,
		addr:            addr,
		baseURI:         Endpoint{Protocol: opts.Endpoint.scheme(), Addr: addr.String()}.BaseURI(),
		registry:        reg,
		logger:          opts.Logger,
		shutdownTimeout: opts.ShutdownTimeout,
		serveErr:        make(chan error, 1),
	}

	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		h.serveErr <- err
	}()

	h.logger.Info().
		Str("event", "admin.listening").
		Str("base_uri", h.baseURI).
		Int("max_conns", opts.MaxConns).
		Msg("admin endpoint accepting connections")
	return h, nil
}

// Addr returns the bound address (useful with port 0).
func (h *Handle) Addr() net.Addr { return h.addr }

// BaseURI returns protocol://host:port of the bound listener.
func (h *Handle) BaseURI() string { return h.baseURI }

// Registry exposes the command registry.
func (h *Handle) Registry() *Registry { return h.registry }

// Close stops accepting, drains in-flight requests within the shutdown
// timeout and releases the binding. Safe to call repeatedly.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		var errs []error
		if err := h.srv.Shutdown(ctx); err != nil {
			h.logger.Warn().Err(err).Str("event", "admin.shutdown_forced").Msg("graceful shutdown timed out, closing connections")
			errs = append(errs, err)
			if cerr := h.srv.Close(); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		if err := <-h.serveErr; err != nil {
			errs = append(errs, fmt.Errorf("admin: serve: %w", err))
		}
		h.closeErr = errors.Join(errs...)

		h.logger.Info().
			Str("event", "admin.closed").
			Str("base_uri", h.baseURI).
			Msg("admin endpoint released")
	})
	return h.closeErr
}
