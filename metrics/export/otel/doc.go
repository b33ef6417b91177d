// Package otel provides OpenTelemetry metric exporter bindings for goCred
// counters and latency histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each goCred
// counter and an Int64ObservableGauge per histogram bucket. A single callback
// reads [goCred.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
