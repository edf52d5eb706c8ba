// Package telemetry groups the observability packages of lendrules.
//
//   - logging: slog logger with context fields and record redaction
//   - metrics: Prometheus collector for submissions, evaluations and audits
//   - tracing: OpenTelemetry provider with OTLP gRPC export
//   - health: liveness and readiness probes
package telemetry
