// Package middleware exposes net/http adapters around goCred.Engine.
//
// # Guards
//
//   - [RequireSession]: signature and expiry check only, no directory read.
//   - [RequireUser]: RequireSession plus a directory lookup of the subject.
//   - [ClientIP]: records the caller address for rate limiting and audit.
//
// Rejected requests get a 401 with the body
// {"success":false,"message":"Not authenticated"} whatever the cause.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; every decision is delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Tell callers why a token was rejected.
package middleware
