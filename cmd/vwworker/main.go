// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// vwworker runs the background processor host with its admin endpoint.
//
// Usage:
//
//	vwworker [-config config.yaml]
//	vwworker validate -f config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/vwworker/internal/config"
	"github.com/ManuGH/vwworker/internal/daemon"
	xglog "github.com/ManuGH/vwworker/internal/log"
	"github.com/rs/zerolog"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const stopTimeout = 30 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "validate" {
		os.Exit(runValidate(os.Args[2:], os.Stdout, os.Stderr))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: daemon.ServiceName,
		Version: version,
	})
	logger := xglog.WithComponent("main")

	cfg, err := config.NewLoader(strings.TrimSpace(*configPath), version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str(xglog.FieldFile, *configPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: daemon.ServiceName,
		Version: version,
	})
	logger = xglog.WithComponent("main")

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("admin", cfg.Admin.Protocol+"://"+cfg.Admin.Addr).
		Str(xglog.FieldStream, cfg.Processor.Stream).
		Str("checkpoint_backend", cfg.Checkpoint.Backend).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("starting vwworker")

	ctrl, err := daemon.New(daemon.DefaultDeps(cfg))
	if err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "lifecycle.init_failed").Msg("invalid controller dependencies")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if report := ctrl.Start(ctx); !report.OK() {
		logger.Warn().
			Err(report.Err()).
			Str(xglog.FieldEvent, "startup.degraded").
			Msg("worker started with failures")
	}

	go func() {
		<-ctx.Done()
		logger.Info().Str(xglog.FieldEvent, "shutdown.signal").Msg("shutdown signal received")
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		logStop(logger, ctrl.Stop(stopCtx))
	}()

	ctrl.Run()

	// Run also returns on a wait failure; Stop is idempotent and waits for
	// a teardown already in progress.
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	logStop(logger, ctrl.Stop(stopCtx))
	logger.Info().Str(xglog.FieldEvent, "shutdown.complete").Msg("vwworker exited")
}

func logStop(logger zerolog.Logger, report daemon.Report) {
	if report.OK() {
		return
	}
	logger.Warn().
		Err(report.Err()).
		Str(xglog.FieldEvent, "shutdown.degraded").
		Int("failures", len(report.Steps)).
		Msg("teardown finished with failures")
}

// runValidate loads and validates a config file without starting anything.
func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  vwworker validate -f config.yaml")
		return 2
	}

	if _, err := config.NewLoader(file, version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(stderr, "  %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "✓ %s is valid\n", file)
	return 0
}
