package goCred

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goCred/channel"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/errutil"
	"github.com/MrEthical07/goCred/internal/flows"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/internal/stores"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/store"
	"github.com/samber/oops"
)

// Engine runs the sign-in, OTP, session and password reset flows.
// All methods are safe for concurrent use.
type Engine struct {
	config      Config
	now         func() time.Time
	logger      *slog.Logger
	store       store.Store
	ownedStore  store.Store
	directory   UserDirectory
	registrar   SubjectRegistrar
	notifier    Notifier
	channels    *channel.Normalizer
	challenges  *stores.ChallengeStore
	ledger      *stores.RedemptionLedger
	rateLimiter *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *internalmetrics.Metrics
	hasher      *password.Argon2
	dummyHash   string
	jwtManager  *jwt.Manager
}

// Close drains the audit dispatcher and closes the ephemeral store if the
// engine created it.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedStore != nil {
		if err := e.ownedStore.Close(); err != nil {
			e.logError(context.Background(), "store close failed", err)
		}
	}
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full. It is always zero unless Audit.DropIfFull is set.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and histograms. It is safe
// to call concurrently.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observe(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) logError(ctx context.Context, msg string, err error) {
	if e == nil {
		return
	}
	errutil.LogError(ctx, e.logger, msg, err)
}

func (e *Engine) normalizeChannel(raw string) (string, error) {
	ch, err := e.channels.Normalize(raw)
	if err != nil {
		return "", err
	}
	return ch.Value, nil
}

func directoryUnavailable(op string, err error) error {
	return oops.
		In("directory").
		Code("DIRECTORY_UNAVAILABLE").
		With("op", op).
		Wrap(fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err))
}

func storeUnavailable(op string, err error) error {
	return oops.
		In("store").
		Code("STORE_UNAVAILABLE").
		With("op", op).
		Wrap(fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
}

// SignIn checks a password and issues a session token.
//
// identifier is an email or mobile number. An unknown identifier and a
// wrong password both return ErrInvalidCredential after the same amount of
// password hashing work.
func (e *Engine) SignIn(ctx context.Context, identifier, password string) (SignInResult, error) {
	if e == nil || e.directory == nil || e.hasher == nil {
		return SignInResult{}, ErrEngineNotReady
	}

	var subject Subject
	deps := e.signInFlowDeps(&subject)

	res, err := flows.RunSignIn(ctx, identifier, password, deps)
	if err != nil {
		return SignInResult{}, err
	}

	return SignInResult{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Subject:   subject,
	}, nil
}

func (e *Engine) signInFlowDeps(found *Subject) flows.SignInDeps {
	return flows.SignInDeps{
		UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		NormalizeIdentifier: e.normalizeChannel,
		CheckLimiter:        e.rateLimiter.CheckSignIn,
		RecordFailure:       e.rateLimiter.RecordSignInFailure,
		ResetLimiter:        e.rateLimiter.ResetSignIn,
		IsRateLimited: func(err error) bool {
			return errors.Is(err, rate.ErrRateLimited)
		},
		FindByIdentifier: func(ctx context.Context, identifier string) (flows.SignInRecord, error) {
			rec, err := e.directory.FindByIdentifier(ctx, identifier)
			if err != nil {
				if errors.Is(err, ErrSubjectNotFound) {
					return flows.SignInRecord{}, err
				}
				return flows.SignInRecord{}, directoryUnavailable("find_by_identifier", err)
			}
			*found = rec.Subject
			return flows.SignInRecord{
				SubjectID:    rec.Subject.ID,
				PasswordHash: rec.PasswordHash,
			}, nil
		},
		IsNotFound: func(err error) bool {
			return errors.Is(err, ErrSubjectNotFound)
		},
		VerifyPassword: e.hasher.Verify,
		DummyVerify: func(password string) {
			_ = e.hasher.Verify(password, e.dummyHash)
		},
		NeedsRehash: e.hasher.NeedsRehash,
		Rehash: func(ctx context.Context, subjectID, password string) error {
			hash, err := e.hasher.Hash(password)
			if err != nil {
				return err
			}
			if err := e.directory.UpdatePasswordHash(ctx, subjectID, hash); err != nil {
				return directoryUnavailable("update_password_hash", err)
			}
			return nil
		},
		IssueSession: func(subjectID string, now time.Time) (string, time.Time, error) {
			token, claims, err := e.jwtManager.IssueSession(subjectID, now)
			if err != nil {
				return "", time.Time{}, err
			}
			return token, claims.ExpiresAt.Time, nil
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		Observe: func(id int, d time.Duration) {
			e.observe(MetricID(id), d)
		},
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		LogError:      e.logError,
		Metrics: flows.SignInMetrics{
			SignInSuccess:     int(MetricSignInSuccess),
			SignInFailure:     int(MetricSignInFailure),
			SignInRateLimited: int(MetricSignInRateLimited),
			SessionIssued:     int(MetricSessionIssued),
			PasswordRehashed:  int(MetricPasswordRehashed),
			SignInLatency:     int(MetricSignInLatency),
		},
		Events: flows.SignInEvents{
			SignInSuccess:     auditEventSignInSuccess,
			SignInFailure:     auditEventSignInFailure,
			SignInRateLimited: auditEventSignInRateLimited,
		},
		Errors: flows.SignInErrors{
			EngineNotReady:       ErrEngineNotReady,
			InvalidCredential:    ErrInvalidCredential,
			RateLimited:          ErrRateLimited,
			StoreUnavailable:     ErrStoreUnavailable,
			DirectoryUnavailable: ErrDirectoryUnavailable,
		},
	}
}

// CurrentUser resolves a session token to the live subject. A token whose
// subject no longer exists is rejected like a bad token: the error wraps
// both ErrUnauthenticated and ErrSubjectNotFound.
func (e *Engine) CurrentUser(ctx context.Context, token string) (Subject, error) {
	if e == nil || e.directory == nil {
		return Subject{}, ErrEngineNotReady
	}

	info, err := e.ValidateSession(ctx, token)
	if err != nil {
		return Subject{}, err
	}

	subject, err := e.directory.FindByID(ctx, info.SubjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			e.metricInc(MetricSessionRejected)
			e.emitAudit(ctx, auditEventSessionRejected, false, info.SubjectID, "", ErrSubjectNotFound, func() map[string]string {
				return map[string]string{
					"reason": "subject_not_found",
				}
			})
			return Subject{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrSubjectNotFound)
		}
		err = directoryUnavailable("find_by_id", err)
		e.logError(ctx, "current user lookup failed", err)
		return Subject{}, err
	}

	return subject, nil
}
