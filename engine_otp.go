package goCred

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goCred/internal"
	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/internal/stores"
	"github.com/MrEthical07/goCred/notify"
	"github.com/samber/oops"
)

// IssueOtp draws a fresh code for channel, replaces any outstanding code
// for it and sends the code through the Notifier. If delivery fails the
// new challenge stays in place and ErrDeliveryFailed is returned; a retry
// issues another code.
func (e *Engine) IssueOtp(ctx context.Context, rawChannel string) (OtpIssue, error) {
	if e == nil || e.challenges == nil || e.notifier == nil {
		return OtpIssue{}, ErrEngineNotReady
	}

	ch, err := e.normalizeChannel(rawChannel)
	if err != nil {
		return OtpIssue{}, ErrInvalidChannel
	}

	if err := e.rateLimiter.CheckOTPIssue(ctx, ch); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricOTPRateLimited)
			e.emitRateLimit(ctx, "otp_issue", ch, nil)
			return OtpIssue{}, ErrRateLimited
		}
		err = storeUnavailable("otp_rate_check", err)
		e.logError(ctx, "otp limiter unavailable", err)
		return OtpIssue{}, err
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return OtpIssue{}, err
	}

	now := e.now()
	if err := e.challenges.Save(ctx, ch, internal.HashSecret(code), now); err != nil {
		err = storeUnavailable("otp_save", err)
		e.logError(ctx, "otp save failed", err)
		return OtpIssue{}, err
	}

	if err := e.notifier.Send(ctx, ch, notify.OTPSubject, notify.OTPBody(code)); err != nil {
		e.metricInc(MetricOTPDeliveryFailure)
		err = oops.
			In("notify").
			Code("OTP_DELIVERY_FAILED").
			With("channel", internal.MaskChannel(ch)).
			Wrap(fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
		e.logError(ctx, "otp delivery failed", err)
		e.emitAudit(ctx, auditEventOTPIssued, false, "", ch, ErrDeliveryFailed, nil)
		return OtpIssue{}, err
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, "", ch, nil, nil)

	issue := OtpIssue{
		Channel:   ch,
		ExpiresAt: now.Add(e.config.OTP.TTL),
	}
	if e.config.OTP.ExposeCode {
		issue.Code = code
	}
	return issue, nil
}

// VerifyOtp checks code against the outstanding challenge for a channel.
// A code verifies at most once. The returned error is nil for
// VerifyVerified and otherwise one of ErrChallengeNotFound,
// ErrChallengeExpired, ErrChallengeMismatch or ErrChallengeAttemptsExceeded
// (which wraps ErrChallengeMismatch). Store failures wrap ErrStoreUnavailable.
func (e *Engine) VerifyOtp(ctx context.Context, rawChannel, code string) (VerifyResult, error) {
	if e == nil || e.challenges == nil {
		return VerifyNotRequested, ErrEngineNotReady
	}

	ch, err := e.normalizeChannel(rawChannel)
	if err != nil {
		return VerifyNotRequested, ErrInvalidChannel
	}

	res, err := e.challenges.Verify(ctx, ch, internal.HashSecret(strings.TrimSpace(code)), e.now())
	if err != nil {
		if errors.Is(err, stores.ErrStoreContention) {
			e.metricInc(MetricStoreContention)
			err = oops.
				In("store").
				Code("STORE_CONTENTION").
				With("op", "otp_verify").
				Wrap(fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
		} else {
			err = storeUnavailable("otp_verify", err)
		}
		e.logError(ctx, "otp verify failed", err)
		return VerifyNotRequested, err
	}

	var (
		result VerifyResult
		outErr error
		metric MetricID
	)
	switch res {
	case stores.ChallengeVerified:
		result, outErr, metric = VerifyVerified, nil, MetricOTPVerified
	case stores.ChallengeExpired:
		result, outErr, metric = VerifyExpired, ErrChallengeExpired, MetricOTPExpired
	case stores.ChallengeMismatch:
		result, outErr, metric = VerifyMismatch, ErrChallengeMismatch, MetricOTPMismatch
	case stores.ChallengeAttemptsExceeded:
		result, outErr, metric = VerifyAttemptsExceeded, ErrChallengeAttemptsExceeded, MetricOTPAttemptsExceeded
	default:
		result, outErr, metric = VerifyNotRequested, ErrChallengeNotFound, MetricOTPNotRequested
	}

	e.metricInc(metric)
	e.emitAudit(ctx, auditEventOTPVerify, outErr == nil, "", ch, outErr, func() map[string]string {
		return map[string]string{
			"result": result.String(),
		}
	})
	return result, outErr
}
