package goCred

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential is returned by SignIn for an unknown identifier or a wrong password.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUnauthenticated is returned when a session token cannot be turned into a live subject.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrChallengeNotFound is returned when no OTP is outstanding for the channel.
	ErrChallengeNotFound = errors.New("otp not requested")
	// ErrChallengeExpired is returned when the outstanding OTP is past its TTL.
	ErrChallengeExpired = errors.New("otp expired")
	// ErrChallengeMismatch is returned when the submitted OTP is wrong.
	ErrChallengeMismatch = errors.New("otp mismatch")
	// ErrChallengeAttemptsExceeded is returned when a mismatch exhausts the attempt budget.
	// It wraps ErrChallengeMismatch.
	ErrChallengeAttemptsExceeded = fmt.Errorf("otp attempts exceeded: %w", ErrChallengeMismatch)
	// ErrTokenAlreadyUsed is returned when a reset token is redeemed a second time.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrTokenWrongType is returned when a token of one kind is presented as another.
	ErrTokenWrongType = errors.New("token type mismatch")
	// ErrTokenInvalid is returned for malformed or badly signed tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for tokens presented at or after exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrSubjectNotFound is returned by directories when no subject matches.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrDeliveryFailed is returned when the notifier cannot send a message.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrRateLimited is returned when a fixed-window budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrPasswordPolicy is returned when a new password does not meet the policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrIdentifierTaken is returned by registrars when the email or mobile is already in use.
	ErrIdentifierTaken = errors.New("identifier already taken")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
	// ErrInvalidChannel is returned when an identifier is neither a valid email nor a valid mobile.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidRegistration is returned when a registration request fails field validation.
	ErrInvalidRegistration = errors.New("invalid registration request")
	// ErrDirectoryUnavailable is returned when the user directory fails for a reason other than a missing subject.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrStoreUnavailable is returned when the ephemeral store cannot be reached or keeps losing races.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrRegistrationDisabled is returned by Register when the directory cannot create subjects.
	ErrRegistrationDisabled = errors.New("registration disabled")
)

// User-facing messages for successful outcomes.
const (
	MessageAccountCreated = "Your account has been created."
	MessageOtpSent        = "OTP sent successfully."
	MessageOtpVerified    = "OTP verified successfully."
	MessageResetRequested = "If an account with that email exists, you'll receive a password reset link."
	MessagePasswordReset  = "Password has been reset successfully."
)

const messageGeneric = "Something went wrong. Please try again later."

var publicMessages = []struct {
	err error
	msg string
}{
	{ErrInvalidCredential, "Incorrect email or password."},
	{ErrUnauthenticated, "Not authenticated"},
	{ErrChallengeNotFound, "OTP not requested for this channel."},
	{ErrChallengeExpired, "OTP has expired. Please request a new one."},
	// Before ErrChallengeMismatch, which it wraps.
	{ErrChallengeAttemptsExceeded, "Too many incorrect attempts. Please request a new OTP."},
	{ErrChallengeMismatch, "Invalid OTP."},
	{ErrTokenAlreadyUsed, "You've already changed your password."},
	{ErrTokenWrongType, "Invalid reset token."},
	{ErrTokenExpired, "Your link has expired. Please request a new one."},
	{ErrTokenInvalid, "Your link is invalid. Please request a new one."},
	{ErrSubjectNotFound, "User not found."},
	{ErrDeliveryFailed, "We could not send the message. Please try again later."},
	{ErrRateLimited, "Too many requests. Please try again later."},
	{ErrPasswordPolicy, "Password does not meet the requirements."},
	{ErrPasswordMismatch, "Password not matching with confirm password."},
	{ErrIdentifierTaken, "The email or mobile already exists."},
	{ErrInvalidChannel, "Please provide a valid email or mobile number."},
	{ErrInvalidRegistration, "Please check the registration details."},
	{ErrRegistrationDisabled, "Registration is not available."},
}

// PublicMessage maps err to the sentence shown to end users. Errors that
// wrap ErrUnauthenticated always map to the same message, whatever the
// underlying cause. Unrecognised and infrastructure errors map to a generic
// sentence.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range publicMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return messageGeneric
}
