// Package rate provides fixed-window rate limits for sign-in failures, OTP
// issue and password-reset requests.
//
// # Window semantics
//
// Counters use store.Store.Incr: the window opens on the first hit and the
// count resets when it lapses. Key prefixes:
//   - rl:signin:    sign-in failures per identifier
//   - rl:signin-ip: sign-in failures per IP
//   - rl:otp:       OTP issue per channel
//   - rl:reset:     reset requests per channel
//   - rl:reset-ip:  reset requests per IP
package rate
