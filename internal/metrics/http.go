// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vwworker_admin_http_requests_total",
		Help: "Admin HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vwworker_admin_http_request_duration_seconds",
		Help:    "Admin HTTP request latency",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"method", "route"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vwworker_admin_http_in_flight",
		Help: "Admin HTTP requests currently being served",
	})
)

// ObserveHTTPRequest records one finished admin request.
func ObserveHTTPRequest(method, route, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// HTTPInFlight returns the in-flight request gauge.
func HTTPInFlight() prometheus.Gauge {
	return httpInFlight
}
