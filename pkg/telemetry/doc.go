// Package telemetry provides logging, metrics, and tracing for confrel.
// Logging is zerolog, metrics are Prometheus on a private registry, and
// tracing is OpenTelemetry with a stdout exporter for debugging runs.
package telemetry
