// Package jwt issues and verifies the signed tokens used by goCred: bearer
// session tokens and single-use password-reset tokens.
//
// Both kinds carry a signed "type" claim, and every parse checks it, so a
// reset token is never accepted as a session and vice versa. The current time
// is supplied by the caller, which keeps expiry decisions deterministic: a
// token is valid while now is strictly before exp (plus the configured leeway).
package jwt
