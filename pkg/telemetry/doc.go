// Package telemetry groups the observability subpackages.
//
// Subpackages:
//   - logging: structured slog logger construction
//   - metrics: Prometheus instrumentation for the budget engine
package telemetry
