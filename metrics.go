package goCred

import (
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
)

// MetricID identifies one counter or latency histogram.
type MetricID = internalmetrics.MetricID

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricSignInSuccess              = internalmetrics.MetricSignInSuccess
	MetricSignInFailure              = internalmetrics.MetricSignInFailure
	MetricSignInRateLimited          = internalmetrics.MetricSignInRateLimited
	MetricSessionIssued              = internalmetrics.MetricSessionIssued
	MetricSessionRejected            = internalmetrics.MetricSessionRejected
	MetricOTPIssued                  = internalmetrics.MetricOTPIssued
	MetricOTPDeliveryFailure         = internalmetrics.MetricOTPDeliveryFailure
	MetricOTPRateLimited             = internalmetrics.MetricOTPRateLimited
	MetricOTPVerified                = internalmetrics.MetricOTPVerified
	MetricOTPMismatch                = internalmetrics.MetricOTPMismatch
	MetricOTPExpired                 = internalmetrics.MetricOTPExpired
	MetricOTPNotRequested            = internalmetrics.MetricOTPNotRequested
	MetricOTPAttemptsExceeded        = internalmetrics.MetricOTPAttemptsExceeded
	MetricPasswordResetRequest       = internalmetrics.MetricPasswordResetRequest
	MetricPasswordResetRateLimited   = internalmetrics.MetricPasswordResetRateLimited
	MetricPasswordResetRedeemSuccess = internalmetrics.MetricPasswordResetRedeemSuccess
	MetricPasswordResetRedeemFailure = internalmetrics.MetricPasswordResetRedeemFailure
	MetricPasswordResetReplay        = internalmetrics.MetricPasswordResetReplay
	MetricPasswordRehashed           = internalmetrics.MetricPasswordRehashed
	MetricRegistrationSuccess        = internalmetrics.MetricRegistrationSuccess
	MetricRegistrationDuplicate      = internalmetrics.MetricRegistrationDuplicate
	MetricRegistrationFailure        = internalmetrics.MetricRegistrationFailure
	MetricStoreContention            = internalmetrics.MetricStoreContention
	MetricValidateLatency            = internalmetrics.MetricValidateLatency
	MetricSignInLatency              = internalmetrics.MetricSignInLatency
)
