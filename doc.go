// Package goCred provides password and one-time-code authentication: argon2id
// credential hashing, signed stateless session tokens, single-use password
// reset links and numeric OTP challenges delivered by email or SMS.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goCred is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator interfaces ([UserDirectory], [SubjectRegistrar], [Notifier]) and value
// types (SignInResult, SessionInfo, OtpIssue, ...). Flow orchestration, challenge and
// redemption records, rate limiting and audit dispatch live under internal/.
//
// All single-use state (OTP challenges, reset redemptions, limiter counters) is kept in
// a [store.Store]: in process by default, or Redis through [Builder.WithRedis].
//
// # What this package must NOT do
//
//   - Log or audit secrets. Channels are masked, codes and tokens are never written.
//   - Tell an unknown account apart from a wrong password, or an unknown reset channel
//     from a known one, in any result returned to the caller.
//   - Import any sub-package that re-imports goCred (no import cycles).
//
// # Performance contract
//
// ValidateSession is the hot path. It verifies a signature and never touches the store
// or the directory. CurrentUser adds one directory read.
package goCred
