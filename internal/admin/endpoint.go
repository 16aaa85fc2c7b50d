// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package admin bootstraps the worker's administrative HTTP endpoint.
package admin

import (
	"errors"
	"fmt"
	"strings"
)

// Endpoint describes where the admin listener binds.
type Endpoint struct {
	Protocol string // "http" or "https"
	Addr     string // host:port
}

// BaseURI returns protocol://addr.
func (e Endpoint) BaseURI() string {
	return fmt.Sprintf("%s://%s", e.scheme(), e.Addr)
}

// Secure reports whether the endpoint serves TLS.
func (e Endpoint) Secure() bool { return e.scheme() == "https" }

func (e Endpoint) scheme() string {
	if e.Protocol == "" {
		return "http"
	}
	return strings.ToLower(e.Protocol)
}

func (e Endpoint) validate() error {
	switch e.scheme() {
	case "http", "https":
	default:
		return fmt.Errorf("admin: unsupported protocol %q", e.Protocol)
	}
	if e.Addr == "" {
		return errors.New("admin: empty bind address")
	}
	return nil
}
