package goCred

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/jwt"
)

// IssueSession signs a session token for subjectID. It does not consult
// the directory; callers that need a live subject use SignIn.
func (e *Engine) IssueSession(ctx context.Context, subjectID string) (IssuedSession, error) {
	if e == nil || e.jwtManager == nil {
		return IssuedSession{}, ErrEngineNotReady
	}
	if subjectID == "" {
		return IssuedSession{}, errors.New("subject id required")
	}

	token, claims, err := e.jwtManager.IssueSession(subjectID, e.now())
	if err != nil {
		e.logError(ctx, "session signing failed", err)
		return IssuedSession{}, err
	}

	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventSessionIssued, true, subjectID, "", nil, nil)

	return IssuedSession{
		Token:       token,
		SessionInfo: sessionInfoFromClaims(claims),
	}, nil
}

// ValidateSession checks a session token's signature and expiry without
// touching the store or the directory.
//
// A session issued at t validates throughout [t, t+TTL) and is rejected
// from t+TTL on. Every rejection wraps ErrUnauthenticated together with one
// of ErrTokenExpired, ErrTokenWrongType or ErrTokenInvalid; PublicMessage
// reports all of them the same way.
func (e *Engine) ValidateSession(ctx context.Context, token string) (SessionInfo, error) {
	if e == nil || e.jwtManager == nil {
		return SessionInfo{}, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.observe(MetricValidateLatency, time.Since(start))
	}()

	claims, err := e.jwtManager.ParseSession(token, e.now())
	if err != nil {
		kind := tokenError(err)
		e.metricInc(MetricSessionRejected)
		e.logger.DebugContext(ctx, "session rejected", "reason", auditErrorCode(kind))
		e.emitAudit(ctx, auditEventSessionRejected, false, "", "", kind, nil)
		return SessionInfo{}, fmt.Errorf("%w: %w", ErrUnauthenticated, kind)
	}

	return sessionInfoFromClaims(claims), nil
}

// tokenError maps codec failures onto the public token sentinels.
func tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrWrongType):
		return ErrTokenWrongType
	default:
		return ErrTokenInvalid
	}
}

func sessionInfoFromClaims(claims *jwt.Claims) SessionInfo {
	info := SessionInfo{
		SubjectID: claims.Subject,
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}
