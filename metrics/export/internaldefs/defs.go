package internaldefs

import (
	goCred "github.com/MrEthical07/goCred"
)

// CounterDef names a counter for exporters.
type CounterDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// HistogramDef names a latency histogram for exporters.
type HistogramDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goCred.MetricSignInSuccess, Name: "gocred_signin_success_total", Help: "Successful sign-in attempts."},
	{ID: goCred.MetricSignInFailure, Name: "gocred_signin_failure_total", Help: "Failed sign-in attempts."},
	{ID: goCred.MetricSignInRateLimited, Name: "gocred_signin_rate_limited_total", Help: "Rate-limited sign-in attempts."},
	{ID: goCred.MetricSessionIssued, Name: "gocred_session_issued_total", Help: "Issued session tokens."},
	{ID: goCred.MetricSessionRejected, Name: "gocred_session_rejected_total", Help: "Rejected session tokens."},
	{ID: goCred.MetricOTPIssued, Name: "gocred_otp_issued_total", Help: "OTP codes issued and delivered."},
	{ID: goCred.MetricOTPDeliveryFailure, Name: "gocred_otp_delivery_failure_total", Help: "OTP codes that could not be delivered."},
	{ID: goCred.MetricOTPRateLimited, Name: "gocred_otp_rate_limited_total", Help: "Rate-limited OTP issue requests."},
	{ID: goCred.MetricOTPVerified, Name: "gocred_otp_verified_total", Help: "Successful OTP verifications."},
	{ID: goCred.MetricOTPMismatch, Name: "gocred_otp_mismatch_total", Help: "OTP submissions that did not match."},
	{ID: goCred.MetricOTPExpired, Name: "gocred_otp_expired_total", Help: "OTP submissions against an expired challenge."},
	{ID: goCred.MetricOTPNotRequested, Name: "gocred_otp_not_requested_total", Help: "OTP submissions with no outstanding challenge."},
	{ID: goCred.MetricOTPAttemptsExceeded, Name: "gocred_otp_attempts_exceeded_total", Help: "OTP challenges purged after too many mismatches."},
	{ID: goCred.MetricPasswordResetRequest, Name: "gocred_password_reset_request_total", Help: "Password reset requests."},
	{ID: goCred.MetricPasswordResetRateLimited, Name: "gocred_password_reset_rate_limited_total", Help: "Rate-limited password reset requests."},
	{ID: goCred.MetricPasswordResetRedeemSuccess, Name: "gocred_password_reset_redeem_success_total", Help: "Successful password reset redemptions."},
	{ID: goCred.MetricPasswordResetRedeemFailure, Name: "gocred_password_reset_redeem_failure_total", Help: "Failed password reset redemptions."},
	{ID: goCred.MetricPasswordResetReplay, Name: "gocred_password_reset_replay_total", Help: "Reset tokens presented after use."},
	{ID: goCred.MetricPasswordRehashed, Name: "gocred_password_rehashed_total", Help: "Password hashes upgraded on sign-in."},
	{ID: goCred.MetricRegistrationSuccess, Name: "gocred_registration_success_total", Help: "Successful registrations."},
	{ID: goCred.MetricRegistrationDuplicate, Name: "gocred_registration_duplicate_total", Help: "Registrations rejected for a taken email or mobile."},
	{ID: goCred.MetricRegistrationFailure, Name: "gocred_registration_failure_total", Help: "Registrations rejected for invalid input or backend errors."},
	{ID: goCred.MetricStoreContention, Name: "gocred_store_contention_total", Help: "Store updates abandoned after repeated compare-and-swap conflicts."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goCred.MetricValidateLatency, Name: "gocred_validate_latency_seconds", Help: "Session validation latency."},
	{ID: goCred.MetricSignInLatency, Name: "gocred_signin_latency_seconds", Help: "Sign-in latency, including password hashing."},
}

// AuditDroppedName and AuditDroppedHelp describe the dispatcher drop counter.
const (
	AuditDroppedName = "gocred_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket of a snapshot is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals, so the last
// element is the sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
