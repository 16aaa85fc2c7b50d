// SPDX-License-Identifier: MIT

package middleware

import (
	"time"

	"github.com/ManuGH/vwworker/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional layers of the admin middleware stack.
type StackConfig struct {
	TracingService string // empty disables tracing
	RateLimit      int    // requests per minute per client IP, 0 disables
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. Metrics
	r.Use(Metrics())
	// 4. Tracing
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	// 5. Logging (wraps handlers, captures full latency)
	r.Use(log.Middleware("admin"))
	// 6. Rate limit
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(RateLimitConfig{RequestLimit: cfg.RateLimit, WindowSize: time.Minute}))
	}
}
