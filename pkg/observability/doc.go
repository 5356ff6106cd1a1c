// Package observability bundles the operational concerns shared by every
// millops service: structured logging, Prometheus metrics, OpenTelemetry
// tracing, health probes and graceful shutdown.
//
// The metrics registry is the single source of truth for counters and
// gauges; tracing is export-only and never carries metrics. Health probes
// split liveness (process up) from readiness (dependencies reachable) so
// orchestrators can distinguish a hung process from a database outage.
package observability
