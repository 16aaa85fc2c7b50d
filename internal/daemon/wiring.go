// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/vwworker/internal/admin"
	"github.com/ManuGH/vwworker/internal/config"
	"github.com/ManuGH/vwworker/internal/health"
	xglog "github.com/ManuGH/vwworker/internal/log"
	"github.com/ManuGH/vwworker/internal/processor"
	"github.com/ManuGH/vwworker/internal/settings"
	"github.com/ManuGH/vwworker/internal/telemetry"
	xgtls "github.com/ManuGH/vwworker/internal/tls"
)

// ServiceName identifies the worker in traces and telemetry resources.
const ServiceName = "vwworker"

// DefaultDeps wires the production factories from cfg.
func DefaultDeps(cfg config.AppConfig) Deps {
	hm := health.NewManager(cfg.Version)

	return Deps{
		Logger: xglog.WithComponent("lifecycle"),
		Health: hm,

		NewTelemetry: func(ctx context.Context) (Telemetry, error) {
			c, err := telemetry.Open(ctx, TelemetryConfig(cfg), xglog.WithComponent("telemetry"))
			if err != nil {
				return nil, err
			}
			return c, nil
		},

		NewHost: func(ctx context.Context) (Host, error) {
			h, err := processor.Open(ctx, cfg.Processor, cfg.Checkpoint, xglog.WithComponent("processor"))
			if err != nil {
				return nil, err
			}
			hm.RegisterChecker(health.CheckerFunc("processor", func(context.Context) health.CheckResult {
				st := h.Status()
				if st.Paused {
					return health.CheckResult{Status: health.StatusDegraded, Message: "paused"}
				}
				return health.CheckResult{
					Status:  health.StatusHealthy,
					Message: fmt.Sprintf("generation %d, %d events", st.Generation, st.Events),
				}
			}))
			return h, nil
		},

		NewWatcher: func(_ context.Context, host Host) (io.Closer, error) {
			w, err := settings.NewWatcher(cfg.Settings.Path, cfg.Settings.Debounce, host, xglog.WithComponent("settings"))
			if err != nil {
				return nil, err
			}
			return w, nil
		},

		StartAdmin: func(ctx context.Context, host Host) (io.Closer, error) {
			opts := admin.OptionsFromConfig(cfg.Admin)
			opts.Processor = host
			opts.Logger = xglog.WithComponent("admin")
			opts.Health = hm
			if opts.Endpoint.Secure() {
				if err := xgtls.EnsureCertificates(xgtls.Config{
					CertPath: cfg.Admin.TLSCert,
					KeyPath:  cfg.Admin.TLSKey,
					Hosts:    xgtls.HostsFor(cfg.Admin.Addr),
					Logger:   opts.Logger,
				}); err != nil {
					return nil, err
				}
			}
			if cfg.Telemetry.Enabled {
				opts.TracingService = ServiceName
			}
			h, err := admin.Start(ctx, opts)
			if err != nil {
				return nil, err
			}
			return h, nil
		},
	}
}

// TelemetryConfig maps the telemetry config section onto the provider config.
func TelemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:            cfg.Telemetry.Enabled,
		ServiceName:        ServiceName,
		ServiceVersion:     cfg.Version,
		Environment:        cfg.Telemetry.Environment,
		InstrumentationKey: cfg.Telemetry.InstrumentationKey,
		ExporterType:       cfg.Telemetry.Exporter,
		Endpoint:           cfg.Telemetry.Endpoint,
		SamplingRate:       cfg.Telemetry.SamplingRate,
	}
}
