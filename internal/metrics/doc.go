// Package metrics provides lock-free counters and latency histograms for
// goCred observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. Histograms use 8 fixed buckets (5ms through +Inf). Both are
// allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshots. Export (Prometheus, OTel)
// lives in metrics/export/ and reads Snapshot values.
package metrics
