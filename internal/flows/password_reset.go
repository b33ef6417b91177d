package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PasswordResetSubject is the flow-local view of the subject a reset is for.
type PasswordResetSubject struct {
	SubjectID string
	Name      string
}

// PasswordResetMetrics carries metric IDs needed by the reset flows.
type PasswordResetMetrics struct {
	PasswordResetRequest       int
	PasswordResetRateLimited   int
	PasswordResetRedeemSuccess int
	PasswordResetRedeemFailure int
	PasswordResetReplay        int
}

// PasswordResetEvents carries audit event names used by the reset flows.
type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetRedeem  string
	PasswordResetReplay  string
}

// PasswordResetErrors carries host-level sentinel errors used by the reset flows.
type PasswordResetErrors struct {
	EngineNotReady   error
	InvalidChannel   error
	RateLimited      error
	DeliveryFailed   error
	StoreUnavailable error
	TokenAlreadyUsed error
	TokenInvalid     error
	SubjectNotFound  error
	PasswordPolicy   error
}

// PasswordResetDeps is everything the request and redeem flows need from
// the engine.
type PasswordResetDeps struct {
	GenericMessage string

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	NormalizeChannel    func(string) (string, error)
	CheckRequestLimiter func(context.Context, string, string) error
	IsRateLimited       func(error) bool

	FindByIdentifier func(context.Context, string) (PasswordResetSubject, error)
	FindByID         func(context.Context, string) (PasswordResetSubject, error)
	IsNotFound       func(error) bool

	IssueToken            func(string, string, time.Time) (string, error)
	Deliver               func(context.Context, string, PasswordResetSubject, string) error
	SleepEnumerationDelay func(context.Context) error
	// ResponseFloor is the minimum wall time of a successful request on
	// either path, measured with the real clock.
	ResponseFloor time.Duration

	ClaimToken       func(context.Context, string) error
	IsAlreadyClaimed func(error) bool
	ReleaseToken     func(context.Context, string) error
	CommitToken      func(context.Context, string) error
	// ParseToken returns the subject id or one of the host token errors.
	ParseToken func(string, time.Time) (string, error)

	CheckPasswordPolicy func(string) error
	HashPassword        func(string) (string, error)
	UpdatePasswordHash  func(context.Context, string, string) error

	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, string, func() map[string]string)
	LogError      func(context.Context, string, error)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunRequestPasswordReset issues a reset token for the subject behind
// rawChannel and delivers the link. It returns GenericMessage whether or
// not a subject exists; the unknown path sleeps instead of sending, and
// both paths are padded to ResponseFloor.
func RunRequestPasswordReset(ctx context.Context, rawChannel string, deps PasswordResetDeps) (string, error) {
	normalizePasswordResetDeps(&deps)
	started := time.Now()

	if deps.NormalizeChannel == nil ||
		deps.FindByIdentifier == nil ||
		deps.IssueToken == nil ||
		deps.Deliver == nil {
		return "", deps.Errors.EngineNotReady
	}

	channel, err := deps.NormalizeChannel(rawChannel)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", "", deps.Errors.InvalidChannel, func() map[string]string {
			return map[string]string{
				"reason": "invalid_channel",
			}
		})
		return "", errors.Join(deps.Errors.InvalidChannel, err)
	}

	if deps.CheckRequestLimiter != nil {
		if err := deps.CheckRequestLimiter(ctx, channel, deps.ClientIPFromContext(ctx)); err != nil {
			if deps.IsRateLimited(err) {
				deps.MetricInc(deps.Metrics.PasswordResetRateLimited)
				deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", channel, deps.Errors.RateLimited, nil)
				deps.EmitRateLimit(ctx, "password_reset_request", channel, nil)
				return "", deps.Errors.RateLimited
			}
			deps.LogError(ctx, "reset limiter unavailable", err)
			return "", errors.Join(deps.Errors.StoreUnavailable, err)
		}
	}

	subject, err := deps.FindByIdentifier(ctx, channel)
	if err != nil {
		if !deps.IsNotFound(err) {
			deps.LogError(ctx, "reset directory lookup failed", err)
			return "", err
		}
		if sleepErr := deps.SleepEnumerationDelay(ctx); sleepErr != nil {
			return "", sleepErr
		}
		if padErr := padToFloor(ctx, started, deps.ResponseFloor); padErr != nil {
			return "", padErr
		}
		deps.MetricInc(deps.Metrics.PasswordResetRequest)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", channel, nil, func() map[string]string {
			return map[string]string{
				"enumeration_safe": "true",
			}
		})
		return deps.GenericMessage, nil
	}

	token, err := deps.IssueToken(subject.SubjectID, channel, deps.Now())
	if err != nil {
		deps.LogError(ctx, "reset token signing failed", err)
		return "", err
	}

	if err := deps.Deliver(ctx, channel, subject, token); err != nil {
		deps.LogError(ctx, "reset delivery failed", err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, subject.SubjectID, channel, deps.Errors.DeliveryFailed, nil)
		return "", errors.Join(deps.Errors.DeliveryFailed, err)
	}
	if err := padToFloor(ctx, started, deps.ResponseFloor); err != nil {
		return "", err
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, subject.SubjectID, channel, nil, nil)
	return deps.GenericMessage, nil
}

// RunRedeemPasswordReset sets a new password using a reset token.
//
// The token is claimed in the redemption ledger before anything else, so
// of several concurrent redeemers exactly one proceeds; the rest get
// Errors.TokenAlreadyUsed. A token whose subject no longer exists fails
// with Errors.SubjectNotFound wrapped in Errors.TokenInvalid. Every
// failure after the claim releases it, so a token rejected for a
// recoverable reason (weak password) can be retried.
func RunRedeemPasswordReset(ctx context.Context, token, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.ClaimToken == nil ||
		deps.ReleaseToken == nil ||
		deps.CommitToken == nil ||
		deps.ParseToken == nil ||
		deps.FindByID == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	if token == "" {
		deps.MetricInc(deps.Metrics.PasswordResetRedeemFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRedeem, false, "", "", deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "empty_token",
			}
		})
		return deps.Errors.TokenInvalid
	}

	if err := deps.ClaimToken(ctx, token); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetRedeemFailure)
		if deps.IsAlreadyClaimed(err) {
			deps.MetricInc(deps.Metrics.PasswordResetReplay)
			deps.EmitAudit(ctx, deps.Events.PasswordResetReplay, false, "", "", deps.Errors.TokenAlreadyUsed, nil)
			return deps.Errors.TokenAlreadyUsed
		}
		deps.LogError(ctx, "reset ledger claim failed", err)
		return errors.Join(deps.Errors.StoreUnavailable, err)
	}

	fail := func(subjectID, reason string, err error) error {
		// Release must survive a cancelled request, or the token stays
		// pending until the ledger entry lapses.
		if relErr := deps.ReleaseToken(context.WithoutCancel(ctx), token); relErr != nil {
			deps.LogError(ctx, "reset ledger release failed", relErr)
		}
		deps.MetricInc(deps.Metrics.PasswordResetRedeemFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRedeem, false, subjectID, "", err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return err
	}

	subjectID, err := deps.ParseToken(token, deps.Now())
	if err != nil {
		return fail("", "token_rejected", err)
	}

	if _, err := deps.FindByID(ctx, subjectID); err != nil {
		if deps.IsNotFound(err) {
			return fail(subjectID, "subject_not_found", subjectGone(deps))
		}
		deps.LogError(ctx, "reset directory lookup failed", err)
		return fail(subjectID, "directory_unavailable", err)
	}

	if deps.CheckPasswordPolicy != nil {
		if err := deps.CheckPasswordPolicy(newPassword); err != nil {
			return fail(subjectID, "password_policy", errors.Join(deps.Errors.PasswordPolicy, err))
		}
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fail(subjectID, "hash_policy", errors.Join(deps.Errors.PasswordPolicy, err))
	}

	if err := deps.UpdatePasswordHash(ctx, subjectID, hash); err != nil {
		if deps.IsNotFound(err) {
			return fail(subjectID, "subject_not_found", subjectGone(deps))
		}
		deps.LogError(ctx, "reset password update failed", err)
		return fail(subjectID, "update_hash_failed", err)
	}

	if err := deps.CommitToken(context.WithoutCancel(ctx), token); err != nil {
		// The password is already changed and the pending claim still
		// blocks reuse until it lapses.
		deps.LogError(ctx, "reset ledger commit failed", err)
	}

	deps.MetricInc(deps.Metrics.PasswordResetRedeemSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRedeem, true, subjectID, "", nil, nil)
	return nil
}

func padToFloor(ctx context.Context, started time.Time, floor time.Duration) error {
	remaining := floor - time.Since(started)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// subjectGone reports a missing subject so that, outside the process, it
// cannot be told apart from a forged token.
func subjectGone(deps PasswordResetDeps) error {
	return fmt.Errorf("%w: %w", deps.Errors.TokenInvalid, deps.Errors.SubjectNotFound)
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.IsAlreadyClaimed == nil {
		deps.IsAlreadyClaimed = func(error) bool { return false }
	}
	if deps.SleepEnumerationDelay == nil {
		deps.SleepEnumerationDelay = func(context.Context) error { return nil }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, string, func() map[string]string) {}
	}
	if deps.LogError == nil {
		deps.LogError = func(context.Context, string, error) {}
	}
}
