package goCred

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCred/internal"
)

const (
	auditEventSignInSuccess         = "signin_success"
	auditEventSignInFailure         = "signin_failure"
	auditEventSignInRateLimited     = "signin_rate_limited"
	auditEventSessionIssued         = "session_issued"
	auditEventSessionRejected       = "session_rejected"
	auditEventOTPIssued             = "otp_issued"
	auditEventOTPVerify             = "otp_verify"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetRedeem   = "password_reset_redeem"
	auditEventPasswordResetReplay   = "password_reset_replay"
	auditEventRegistrationSuccess   = "registration_success"
	auditEventRegistrationFailure   = "registration_failure"
	auditEventRegistrationDuplicate = "registration_duplicate"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenWrongType     AuditErrorCode = "token_wrong_type"
	auditErrTokenReplay        AuditErrorCode = "token_replay"
	auditErrSubjectNotFound    AuditErrorCode = "subject_not_found"
	auditErrChallengeMissing   AuditErrorCode = "otp_not_requested"
	auditErrChallengeExpired   AuditErrorCode = "otp_expired"
	auditErrChallengeMismatch  AuditErrorCode = "otp_mismatch"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit records one event. channel is masked before it leaves the
// engine; the raw value is never written to a sink.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	channel string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		Channel:   internal.MaskChannel(channel),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	channel string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", channel, ErrRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrInvalidCredential):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenAlreadyUsed):
		return auditErrTokenReplay
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenWrongType):
		return auditErrTokenWrongType
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSubjectNotFound):
		return auditErrSubjectNotFound
	case errors.Is(err, ErrChallengeNotFound):
		return auditErrChallengeMissing
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrChallengeAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrChallengeMismatch):
		return auditErrChallengeMismatch
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrInvalidChannel),
		errors.Is(err, ErrInvalidRegistration):
		return auditErrInvalidInput
	case errors.Is(err, ErrIdentifierTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrDirectoryUnavailable),
		errors.Is(err, ErrRegistrationDisabled):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
