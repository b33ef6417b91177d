// Package internal contains helpers that are private to goCred: OTP code
// generation, secret digests and channel masking for logs.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - errutil: structured error logging for oops errors
//   - flows: pure-function orchestrators for sign-in and password reset
//   - logging: slog handler setup shared by the engine and cmd/gocred
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window budgets on top of store.Store
//   - stores: OTP challenges and the reset redemption ledger
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCred API.
//   - Be imported by any package outside the goCred module.
package internal
