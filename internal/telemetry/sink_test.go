// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingClient(t *testing.T) (*Client, *tracetest.SpanRecorder, *bytes.Buffer) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	return NewClient(logger, tp.Tracer("test")), sr, &buf
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{
		SeverityVerbose:     "verbose",
		SeverityInformation: "information",
		SeverityWarning:     "warning",
		SeverityError:       "error",
		SeverityCritical:    "critical",
		Severity(42):        "unknown",
	}
	for sev, want := range cases {
		assert.Equal(t, want, sev.String())
	}
}

func TestTrackTraceRecordsSpanAndLog(t *testing.T) {
	c, sr, buf := newRecordingClient(t)

	c.TrackTrace("worker starting", SeverityInformation)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "trace", span.Name())
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "worker starting", span.Events()[0].Name)

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "worker starting", attrs[MessageKey])
	assert.Equal(t, "information", attrs[SeverityKey])

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "telemetry.trace", line["event"])
	assert.Equal(t, "worker starting", line["message"])
}

func TestTrackTraceSeverityMapsToLogLevel(t *testing.T) {
	cases := []struct {
		sev   Severity
		level string
	}{
		{SeverityVerbose, "debug"},
		{SeverityWarning, "warn"},
		{SeverityCritical, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.sev.String(), func(t *testing.T) {
			c, _, buf := newRecordingClient(t)
			c.TrackTrace("msg", tc.sev)
			assert.Contains(t, buf.String(), `"level":"`+tc.level+`"`)
		})
	}
}

func TestTrackExceptionMarksSpanError(t *testing.T) {
	c, sr, buf := newRecordingClient(t)

	c.TrackException(errors.New("bind failed"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "bind failed", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
	assert.True(t, strings.Contains(buf.String(), "bind failed"))
}

func TestTrackExceptionIgnoresNil(t *testing.T) {
	c, sr, buf := newRecordingClient(t)
	c.TrackException(nil)
	assert.Empty(t, sr.Ended())
	assert.Zero(t, buf.Len())
}

type panickingTracer struct {
	trace.Tracer
}

func (panickingTracer) Start(context.Context, string, ...trace.SpanStartOption) (context.Context, trace.Span) {
	panic("exporter exploded")
}

func TestSinkNeverPanics(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(zerolog.New(&buf), panickingTracer{})

	assert.NotPanics(t, func() {
		c.TrackTrace("worker stopping", SeverityInformation)
		c.TrackException(errors.New("teardown"))
	})
	assert.Contains(t, buf.String(), "telemetry.sink_panic")
}

func TestLogClientShutdownIsNoop(t *testing.T) {
	c := NewLogClient(zerolog.Nop())
	c.TrackTrace("worker stopped", SeverityInformation)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestOpenDisabled(t *testing.T) {
	c, err := Open(context.Background(), Config{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	c.TrackTrace("hello", SeverityVerbose)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestOpenRequiresInstrumentationKey(t *testing.T) {
	_, err := Open(context.Background(), Config{Enabled: true, ExporterType: "grpc"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingInstrumentationKey)
}

func TestOpenRejectsUnknownExporter(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Enabled:            true,
		InstrumentationKey: "key",
		ExporterType:       "carrier-pigeon",
	}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}

func TestOpenHTTPExporter(t *testing.T) {
	c, err := Open(context.Background(), Config{
		Enabled:            true,
		ServiceName:        "vwworker-test",
		InstrumentationKey: "key",
		ExporterType:       "http",
		Endpoint:           "127.0.0.1:1",
		SamplingRate:       0,
	}, zerolog.Nop())
	require.NoError(t, err)
	c.TrackTrace("sampled out", SeverityInformation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = c.Shutdown(ctx)
}

func TestNop(t *testing.T) {
	s := Nop()
	assert.NotPanics(t, func() {
		s.TrackTrace("x", SeverityCritical)
		s.TrackException(errors.New("y"))
	})
}
