package flows

import (
	"context"
	"errors"
	"time"
)

// SignInResult is the flow-local sign-in response shape.
type SignInResult struct {
	SubjectID string
	Token     string
	ExpiresAt time.Time
}

// SignInRecord is the flow-local view of a directory record.
type SignInRecord struct {
	SubjectID    string
	PasswordHash string
}

// SignInMetrics carries metric IDs needed by the sign-in flow.
type SignInMetrics struct {
	SignInSuccess     int
	SignInFailure     int
	SignInRateLimited int
	SessionIssued     int
	PasswordRehashed  int
	SignInLatency     int
}

// SignInEvents carries audit event names used by the sign-in flow.
type SignInEvents struct {
	SignInSuccess     string
	SignInFailure     string
	SignInRateLimited string
}

// SignInErrors carries host-level sentinel errors used by the sign-in flow.
type SignInErrors struct {
	EngineNotReady       error
	InvalidCredential    error
	RateLimited          error
	StoreUnavailable     error
	DirectoryUnavailable error
}

// SignInDeps is everything RunSignIn needs from the engine.
type SignInDeps struct {
	UpgradeOnLogin bool

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	NormalizeIdentifier func(string) (string, error)

	CheckLimiter  func(context.Context, string, string) error
	RecordFailure func(context.Context, string, string) error
	ResetLimiter  func(context.Context, string) error
	IsRateLimited func(error) bool

	FindByIdentifier func(context.Context, string) (SignInRecord, error)
	IsNotFound       func(error) bool

	VerifyPassword func(string, string) bool
	DummyVerify    func(string)
	NeedsRehash    func(string) bool
	Rehash         func(context.Context, string, string) error

	IssueSession func(string, time.Time) (string, time.Time, error)

	MetricInc     func(int)
	Observe       func(int, time.Duration)
	EmitAudit     func(context.Context, string, bool, string, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, string, func() map[string]string)
	LogError      func(context.Context, string, error)

	Metrics SignInMetrics
	Events  SignInEvents
	Errors  SignInErrors
}

// RunSignIn authenticates identifier/password and issues a session.
//
// An unknown identifier and a wrong password both return
// Errors.InvalidCredential. The unknown path runs DummyVerify so that both
// cost one password verification.
func RunSignIn(ctx context.Context, identifier, password string, deps SignInDeps) (SignInResult, error) {
	normalizeSignInDeps(&deps)

	if deps.NormalizeIdentifier == nil ||
		deps.FindByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.DummyVerify == nil ||
		deps.IssueSession == nil {
		return SignInResult{}, deps.Errors.EngineNotReady
	}

	start := time.Now()
	defer func() {
		deps.Observe(deps.Metrics.SignInLatency, time.Since(start))
	}()

	channel, err := deps.NormalizeIdentifier(identifier)
	if err != nil {
		deps.DummyVerify(password)
		deps.MetricInc(deps.Metrics.SignInFailure)
		deps.EmitAudit(ctx, deps.Events.SignInFailure, false, "", "", deps.Errors.InvalidCredential, func() map[string]string {
			return map[string]string{
				"reason": "invalid_identifier",
			}
		})
		return SignInResult{}, deps.Errors.InvalidCredential
	}

	ip := deps.ClientIPFromContext(ctx)
	if deps.CheckLimiter != nil {
		if err := deps.CheckLimiter(ctx, channel, ip); err != nil {
			if deps.IsRateLimited(err) {
				deps.MetricInc(deps.Metrics.SignInRateLimited)
				deps.EmitAudit(ctx, deps.Events.SignInRateLimited, false, "", channel, deps.Errors.RateLimited, nil)
				deps.EmitRateLimit(ctx, "signin", channel, nil)
				return SignInResult{}, deps.Errors.RateLimited
			}
			deps.LogError(ctx, "sign-in limiter unavailable", err)
			return SignInResult{}, errors.Join(deps.Errors.StoreUnavailable, err)
		}
	}

	record, err := deps.FindByIdentifier(ctx, channel)
	if err != nil {
		if !deps.IsNotFound(err) {
			deps.LogError(ctx, "sign-in directory lookup failed", err)
			deps.EmitAudit(ctx, deps.Events.SignInFailure, false, "", channel, deps.Errors.DirectoryUnavailable, nil)
			return SignInResult{}, err
		}
		deps.DummyVerify(password)
		return SignInResult{}, failSignIn(ctx, deps, channel, ip, "", "unknown_identifier")
	}

	if password == "" || !deps.VerifyPassword(password, record.PasswordHash) {
		return SignInResult{}, failSignIn(ctx, deps, channel, ip, record.SubjectID, "wrong_password")
	}

	if deps.ResetLimiter != nil {
		if err := deps.ResetLimiter(ctx, channel); err != nil {
			deps.LogError(ctx, "sign-in limiter reset failed", err)
		}
	}

	if deps.UpgradeOnLogin && deps.NeedsRehash != nil && deps.Rehash != nil && deps.NeedsRehash(record.PasswordHash) {
		if err := deps.Rehash(ctx, record.SubjectID, password); err != nil {
			deps.LogError(ctx, "password rehash failed", err)
		} else {
			deps.MetricInc(deps.Metrics.PasswordRehashed)
		}
	}

	token, expiresAt, err := deps.IssueSession(record.SubjectID, deps.Now())
	if err != nil {
		deps.LogError(ctx, "session signing failed", err)
		return SignInResult{}, err
	}

	deps.MetricInc(deps.Metrics.SignInSuccess)
	deps.MetricInc(deps.Metrics.SessionIssued)
	deps.EmitAudit(ctx, deps.Events.SignInSuccess, true, record.SubjectID, channel, nil, nil)

	return SignInResult{
		SubjectID: record.SubjectID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func failSignIn(ctx context.Context, deps SignInDeps, channel, ip, subjectID, reason string) error {
	if deps.RecordFailure != nil {
		if err := deps.RecordFailure(ctx, channel, ip); err != nil {
			deps.LogError(ctx, "sign-in failure not recorded", err)
		}
	}
	deps.MetricInc(deps.Metrics.SignInFailure)
	deps.EmitAudit(ctx, deps.Events.SignInFailure, false, subjectID, channel, deps.Errors.InvalidCredential, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return deps.Errors.InvalidCredential
}

func normalizeSignInDeps(deps *SignInDeps) {
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
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Observe == nil {
		deps.Observe = func(int, time.Duration) {}
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
