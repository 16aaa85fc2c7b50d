// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the worker.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Sink attributes
	MessageKey  = "telemetry.message"
	SeverityKey = "telemetry.severity"

	// Admin command attributes
	CommandKey   = "admin.command"
	CommandIDKey = "admin.command_id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// CommandAttributes creates admin command span attributes. The id attribute
// is omitted when empty.
func CommandAttributes(command, id string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(CommandKey, command)}
	if id != "" {
		attrs = append(attrs, attribute.String(CommandIDKey, id))
	}
	return attrs
}
