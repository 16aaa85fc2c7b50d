// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"fmt"

	"github.com/ManuGH/vwworker/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Severity classifies a trace event.
type Severity int

const (
	SeverityVerbose Severity = iota
	SeverityInformation
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "verbose"
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Sink accepts trace and exception events. Implementations must not panic
// and must not block on I/O.
type Sink interface {
	TrackTrace(message string, severity Severity)
	TrackException(err error)
}

// Client is the production Sink: every event is logged, recorded as a span
// and counted.
type Client struct {
	logger   zerolog.Logger
	tracer   trace.Tracer
	provider *Provider
}

// NewClient builds a client over an existing tracer.
func NewClient(logger zerolog.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("vwworker")
	}
	return &Client{logger: logger, tracer: tracer}
}

// NewLogClient builds a client that only logs and counts. It is the fallback
// when the tracer provider cannot be initialised.
func NewLogClient(logger zerolog.Logger) *Client {
	return NewClient(logger, nil)
}

// Open initialises the tracer provider from cfg and returns a client bound
// to it.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := NewClient(logger, provider.Tracer("vwworker/telemetry"))
	c.provider = provider
	return c, nil
}

// TrackTrace records a trace message with the given severity.
func (c *Client) TrackTrace(message string, severity Severity) {
	defer c.swallow("trace")

	c.logEvent(severity).
		Str("event", "telemetry.trace").
		Str("severity", severity.String()).
		Msg(message)

	_, span := c.tracer.Start(context.Background(), "trace",
		trace.WithAttributes(
			attribute.String(MessageKey, message),
			attribute.String(SeverityKey, severity.String()),
		),
	)
	span.AddEvent(message)
	span.End()

	metrics.RecordTelemetryEvent("trace", severity.String())
}

// TrackException records an error event. Nil errors are ignored.
func (c *Client) TrackException(err error) {
	if err == nil {
		return
	}
	defer c.swallow("exception")

	c.logger.Error().
		Err(err).
		Str("event", "telemetry.exception").
		Msg("exception tracked")

	_, span := c.tracer.Start(context.Background(), "exception",
		trace.WithAttributes(attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err))),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()

	metrics.RecordTelemetryEvent("exception", SeverityError.String())
}

// Shutdown flushes the underlying provider, if any.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func (c *Client) logEvent(severity Severity) *zerolog.Event {
	switch severity {
	case SeverityVerbose:
		return c.logger.Debug()
	case SeverityWarning:
		return c.logger.Warn()
	case SeverityError, SeverityCritical:
		return c.logger.Error()
	default:
		return c.logger.Info()
	}
}

// swallow keeps sink failures invisible to callers.
func (c *Client) swallow(kind string) {
	if rec := recover(); rec != nil {
		c.logger.Warn().
			Str("event", "telemetry.sink_panic").
			Str("kind", kind).
			Interface("panic_value", rec).
			Msg("telemetry sink panicked, event dropped")
	}
}

type nopSink struct{}

func (nopSink) TrackTrace(string, Severity) {}
func (nopSink) TrackException(error)        {}

// Nop returns a Sink that discards everything.
func Nop() Sink { return nopSink{} }
