// Package store provides the ephemeral key/value backends behind goCred's
// single-use state: OTP challenges, reset-token redemption records and rate
// counters.
//
// Two implementations ship: [Memory] for single-process deployments and
// tests, and [Redis] for anything that must survive restarts or run on more
// than one node.
package store
