// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestConfigure_AttachesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "svc-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("unit")
	l.Info().Str(FieldEvent, "test.event").Msg("hello")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	got := lines[0]
	if got["service"] != "svc-test" {
		t.Errorf("service = %v, want svc-test", got["service"])
	}
	if got["version"] != "v0.0.1" {
		t.Errorf("version = %v, want v0.0.1", got["version"])
	}
	if got[FieldComponent] != "unit" {
		t.Errorf("component = %v, want unit", got[FieldComponent])
	}
	if got[FieldEvent] != "test.event" {
		t.Errorf("event = %v, want test.event", got[FieldEvent])
	}
}

func TestConfigure_Reconfigure(t *testing.T) {
	var first, second bytes.Buffer
	Configure(Config{Output: &first})
	Configure(Config{Output: &second, Level: "warn"})
	t.Cleanup(func() { Configure(Config{}) })

	logger := Base()
	logger.Warn().Msg("second")
	if first.Len() != 0 {
		t.Error("expected first writer to receive nothing after reconfigure")
	}
	if second.Len() == 0 {
		t.Error("expected second writer to receive the warn line")
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestRequestIDContext(t *testing.T) {
	//nolint:staticcheck // nil context is handled explicitly
	ctx := ContextWithRequestID(nil, "rid-1")
	if got := RequestIDFromContext(ctx); got != "rid-1" {
		t.Fatalf("RequestIDFromContext = %q, want rid-1", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestMiddleware_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "info"})
	t.Cleanup(func() { Configure(Config{}) })

	h := Middleware("admin")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/reset/5", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "abc"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 access log line, got %d", len(lines))
	}
	line := lines[0]
	if line["level"] != "warn" {
		t.Errorf("level = %v, want warn", line["level"])
	}
	if line[FieldStatus] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want %d", line[FieldStatus], http.StatusTeapot)
	}
	if line[FieldRequestID] != "abc" {
		t.Errorf("request_id = %v, want abc", line[FieldRequestID])
	}
	if line[FieldPath] != "/reset/5" {
		t.Errorf("path = %v, want /reset/5", line[FieldPath])
	}
}
