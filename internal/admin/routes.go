// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/vwworker/internal/admin/middleware"
	"github.com/ManuGH/vwworker/internal/checkpoint"
	"github.com/ManuGH/vwworker/internal/health"
	"github.com/ManuGH/vwworker/internal/log"
	"github.com/ManuGH/vwworker/internal/metrics"
	"github.com/ManuGH/vwworker/internal/processor"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type commandBody struct {
	Controller string `json:"controller"`
	ID         string `json:"id,omitempty"`
	Result     any    `json:"result"`
}

// newRouter registers every route. Nothing is added after the listener starts.
func newRouter(reg *Registry, hm *health.Manager, stack middleware.StackConfig) http.Handler {
	r := chi.NewRouter()
	middleware.ApplyStack(r, stack)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	if hm == nil {
		hm = health.NewManager("")
	}
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	h := &commandHandler{reg: reg}
	for _, pattern := range []string{"/{controller}", "/{controller}/{id}"} {
		r.Get(pattern, h.serve)
		r.Post(pattern, h.serve)
	}
	return r
}

type commandHandler struct {
	reg *Registry
}

func (h *commandHandler) serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "controller")
	id := chi.URLParam(r, "id")

	c, ok := h.reg.Resolve(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown_controller", name)
		return
	}
	middleware.AnnotateCommand(r, c.Name(), id)

	var (
		result any
		err    error
	)
	if r.Method == http.MethodPost {
		result, err = c.Execute(r.Context(), id)
	} else {
		result, err = c.Describe(r.Context(), id)
	}

	if err != nil {
		code, kind := classify(err)
		if r.Method == http.MethodPost {
			metrics.RecordAdminCommand(c.Name(), kind)
		}
		logger := log.WithComponentFromContext(r.Context(), "admin")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "admin.command_failed").
			Str("command", c.Name()).
			Str("id", id).
			Msg("admin command failed")
		writeError(w, r, code, kind, err.Error())
		return
	}

	if r.Method == http.MethodPost {
		metrics.RecordAdminCommand(c.Name(), "ok")
	}
	writeJSON(w, r, http.StatusOK, commandBody{Controller: c.Name(), ID: id, Result: result})
}

// classify maps host and store errors onto HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		return http.StatusNotFound, "checkpoint_not_found"
	case errors.Is(err, checkpoint.ErrInvalidID), errors.Is(err, processor.ErrInvalidSettings):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, processor.ErrClosed), errors.Is(err, processor.ErrUnavailable):
		return http.StatusServiceUnavailable, "processor_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, kind, detail string) {
	writeJSON(w, r, code, errorBody{
		Error:     kind,
		Detail:    strings.TrimSpace(detail),
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	middleware.AnnotateResponse(r, route, code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "admin")
		logger.Debug().Err(err).Msg("failed to encode response")
	}
}
