// Package flows contains pure-function orchestrators for the Engine
// operations with the most branching: sign-in and the password reset
// request/redeem pair.
//
// Each flow function (RunSignIn, RunRequestPasswordReset,
// RunRedeemPasswordReset) accepts a typed dependency struct and returns
// results without side-effects beyond those dependencies. Flow tests drive
// them with closures instead of a built Engine.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, JWT manager,
// redemption ledger, rate limiter, audit dispatcher and metrics. They do NOT
// own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCred (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
