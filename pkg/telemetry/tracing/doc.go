// Package tracing configures OpenTelemetry tracing for lendrules.
//
// When telemetry.tracing.enabled is set, New installs an SDK tracer provider
// exporting over OTLP gRPC with a parent-based ratio sampler. Components
// create spans through otel.Tracer(tracing.InstrumentationName), which is a
// noop until a provider is installed.
package tracing
