// Package stores holds the short-lived, security-sensitive records behind
// goCred's flows: OTP challenges and the reset-token redemption ledger.
//
// # Design
//
// Both stores sit on a [store.Store]. Challenges are versioned binary
// records holding only sha256(code); every mutation compares against the
// bytes just read and retries on a lost race, up to four times. The ledger
// uses set-if-absent to claim a token before any side effect happens.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control. It does NOT
// generate codes, enforce rate limits, or decide what a caller is told;
// those belong to internal/flows and the Engine.
//
// # What this package must NOT do
//
//   - Import goCred or internal/flows.
//   - Log or expose plaintext codes or tokens.
//   - Compare secrets with anything other than crypto/subtle.
package stores
