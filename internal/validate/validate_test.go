// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatorAccumulates(t *testing.T) {
	v := New()
	v.NotEmpty("name", " ")
	v.Range("conns", 0, 1, 10)
	v.OneOf("backend", "tape", "sqlite", "badger")
	v.FloatRange("rate", 1.5, 0, 1)
	v.PositiveDuration("interval", 0)
	v.Pair("cert", "a.pem", "key", "")

	if v.IsValid() {
		t.Fatal("expected validator to be invalid")
	}
	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if got := len(verr.Errors()); got != 6 {
		t.Fatalf("got %d errors, want 6: %v", got, err)
	}
	if !strings.Contains(err.Error(), "validation failed for backend") {
		t.Fatalf("message missing backend field: %s", err)
	}
}

func TestValidatorValid(t *testing.T) {
	v := New()
	v.NotEmpty("name", "worker")
	v.Range("conns", 128, 1, 4096)
	v.OneOf("backend", "sqlite", "sqlite", "badger")
	v.HostPort("addr", ":8088")
	v.Pair("cert", "", "key", "")
	if err := v.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"127.0.0.1:8088", true},
		{"[::1]:0", true},
		{":9000", true},
		{"", false},
		{"localhost", false},
		{"localhost:", false},
	}
	for _, tt := range tests {
		v := New()
		v.HostPort("addr", tt.in)
		if v.IsValid() != tt.valid {
			t.Errorf("HostPort(%q) valid=%v, want %v", tt.in, v.IsValid(), tt.valid)
		}
	}
}

func TestErrCopiesErrors(t *testing.T) {
	v := New()
	v.AddError("a", "bad", 1)
	err := v.Err().(ValidationError)
	v.AddError("b", "bad", 2)
	if len(err.Errors()) != 1 {
		t.Fatalf("returned error must not alias validator state")
	}
}
