// Package prometheus exposes goCred metrics through client_golang.
//
// [PrometheusExporter] is a prometheus.Collector: register it with any
// registry, or mount [PrometheusExporter.Handler] to serve it alone.
// Counter names are prefixed gocred_*_total; the histograms are
// gocred_validate_latency_seconds and gocred_signin_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
