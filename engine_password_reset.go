package goCred

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/internal/stores"
	"github.com/MrEthical07/goCred/notify"
	"github.com/samber/oops"
)

// InitiatePasswordReset sends a reset link to the subject behind rawChannel.
//
// The result is the same for known and unknown channels. A reset link is
// only issued and sent when a subject exists; the unknown path sleeps for
// a random 20-40ms instead. Both paths take at least
// PasswordReset.ResponseFloor.
func (e *Engine) InitiatePasswordReset(ctx context.Context, rawChannel string) (ResetRequestResult, error) {
	if e == nil || e.directory == nil || e.jwtManager == nil {
		return ResetRequestResult{}, ErrEngineNotReady
	}

	msg, err := internalflows.RunRequestPasswordReset(ctx, rawChannel, e.passwordResetFlowDeps())
	if err != nil {
		return ResetRequestResult{}, err
	}
	return ResetRequestResult{Message: msg}, nil
}

// RedeemPasswordReset sets a new password for the subject named by a reset
// token.
//
// A token sets a password at most once. Concurrent redeemers of the same
// token see exactly one success; every other caller gets
// ErrTokenAlreadyUsed. A token rejected before the password was written
// (weak password, unknown subject) can be presented again. An unknown
// subject wraps both ErrTokenInvalid and ErrSubjectNotFound, so PublicMessage
// reports it as a forged token.
func (e *Engine) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	if e == nil || e.ledger == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	return internalflows.RunRedeemPasswordReset(ctx, strings.TrimSpace(token), newPassword, e.passwordResetFlowDeps())
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	return internalflows.PasswordResetDeps{
		GenericMessage:      MessageResetRequested,
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		NormalizeChannel:    e.normalizeChannel,
		CheckRequestLimiter: e.rateLimiter.CheckResetRequest,
		IsRateLimited: func(err error) bool {
			return errors.Is(err, rate.ErrRateLimited)
		},
		FindByIdentifier: func(ctx context.Context, ch string) (internalflows.PasswordResetSubject, error) {
			rec, err := e.directory.FindByIdentifier(ctx, ch)
			if err != nil {
				if errors.Is(err, ErrSubjectNotFound) {
					return internalflows.PasswordResetSubject{}, err
				}
				return internalflows.PasswordResetSubject{}, directoryUnavailable("find_by_identifier", err)
			}
			return internalflows.PasswordResetSubject{
				SubjectID: rec.Subject.ID,
				Name:      rec.Subject.Name,
			}, nil
		},
		FindByID: func(ctx context.Context, id string) (internalflows.PasswordResetSubject, error) {
			subject, err := e.directory.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, ErrSubjectNotFound) {
					return internalflows.PasswordResetSubject{}, err
				}
				return internalflows.PasswordResetSubject{}, directoryUnavailable("find_by_id", err)
			}
			return internalflows.PasswordResetSubject{
				SubjectID: subject.ID,
				Name:      subject.Name,
			}, nil
		},
		IsNotFound: func(err error) bool {
			return errors.Is(err, ErrSubjectNotFound)
		},
		IssueToken: func(subjectID, ch string, now time.Time) (string, error) {
			token, _, err := e.jwtManager.IssueReset(subjectID, ch, now)
			return token, err
		},
		Deliver:               e.deliverResetLink,
		SleepEnumerationDelay: sleepPasswordResetEnumerationDelay,
		ResponseFloor:         e.config.PasswordReset.ResponseFloor,
		ClaimToken:            e.ledger.Claim,
		IsAlreadyClaimed: func(err error) bool {
			return errors.Is(err, stores.ErrAlreadyClaimed)
		},
		ReleaseToken: e.ledger.Release,
		CommitToken:  e.ledger.Commit,
		ParseToken: func(token string, now time.Time) (string, error) {
			claims, err := e.jwtManager.ParseReset(token, now)
			if err != nil {
				return "", tokenError(err)
			}
			return claims.Subject, nil
		},
		CheckPasswordPolicy: e.checkPasswordPolicy,
		HashPassword:        e.hasher.Hash,
		UpdatePasswordHash: func(ctx context.Context, id, hash string) error {
			if err := e.directory.UpdatePasswordHash(ctx, id, hash); err != nil {
				if errors.Is(err, ErrSubjectNotFound) {
					return err
				}
				return directoryUnavailable("update_password_hash", err)
			}
			return nil
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		LogError:      e.logError,
		Metrics: internalflows.PasswordResetMetrics{
			PasswordResetRequest:       int(MetricPasswordResetRequest),
			PasswordResetRateLimited:   int(MetricPasswordResetRateLimited),
			PasswordResetRedeemSuccess: int(MetricPasswordResetRedeemSuccess),
			PasswordResetRedeemFailure: int(MetricPasswordResetRedeemFailure),
			PasswordResetReplay:        int(MetricPasswordResetReplay),
		},
		Events: internalflows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetRedeem:  auditEventPasswordResetRedeem,
			PasswordResetReplay:  auditEventPasswordResetReplay,
		},
		Errors: internalflows.PasswordResetErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidChannel:   ErrInvalidChannel,
			RateLimited:      ErrRateLimited,
			DeliveryFailed:   ErrDeliveryFailed,
			StoreUnavailable: ErrStoreUnavailable,
			TokenAlreadyUsed: ErrTokenAlreadyUsed,
			TokenInvalid:     ErrTokenInvalid,
			SubjectNotFound:  ErrSubjectNotFound,
			PasswordPolicy:   ErrPasswordPolicy,
		},
	}
}

// resetLink builds <base>/reset-password?token=<t>&email=<channel>.
func (e *Engine) resetLink(token, ch string) string {
	base := strings.TrimRight(e.config.Delivery.ResetLinkBaseURL, "/")
	return fmt.Sprintf("%s/reset-password?token=%s&email=%s", base, url.QueryEscape(token), url.QueryEscape(ch))
}

func (e *Engine) deliverResetLink(ctx context.Context, ch string, subject internalflows.PasswordResetSubject, token string) error {
	data := notify.ResetEmail{
		AppName:   e.config.Delivery.AppName,
		Name:      subject.Name,
		Link:      e.resetLink(token, ch),
		ExpiresIn: e.config.PasswordReset.TTL,
	}

	var body string
	if strings.Contains(ch, "@") {
		html, err := notify.RenderResetEmail(data)
		if err != nil {
			return err
		}
		body = html
	} else {
		body = notify.ResetText(data)
	}

	if err := e.notifier.Send(ctx, ch, notify.ResetSubject, body); err != nil {
		return oops.
			In("notify").
			Code("RESET_DELIVERY_FAILED").
			With("subject_id", subject.SubjectID).
			Wrap(err)
	}
	return nil
}

// checkPasswordPolicy enforces the minimum length in characters and the
// hasher's byte ceiling.
func (e *Engine) checkPasswordPolicy(pw string) error {
	if len([]rune(pw)) < e.config.Registration.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", e.config.Registration.MinPasswordLength)
	}
	if max := e.config.Password.MaxPasswordBytes; max > 0 && len(pw) > max {
		return fmt.Errorf("password must be at most %d bytes", max)
	}
	return nil
}

func sleepPasswordResetEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
