package goCred

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateSessionExpiryBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.Session.TTL = time.Minute
	te := newTestEngine(t, cfg)

	issued, err := te.IssueSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	te.clock.Advance(time.Minute - time.Second)
	if _, err := te.ValidateSession(context.Background(), issued.Token); err != nil {
		t.Fatalf("expected token valid before TTL, got %v", err)
	}

	te.clock.Advance(time.Second)
	_, err = te.ValidateSession(context.Background(), issued.Token)
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired at TTL, got %v", err)
	}
}

func TestValidateSessionRejectsResetToken(t *testing.T) {
	te := newTestEngine(t, testConfig())

	resetToken, _, err := te.jwtManager.IssueReset("u1", "a@b.com", te.clock.Now())
	if err != nil {
		t.Fatalf("IssueReset failed: %v", err)
	}

	_, err = te.ValidateSession(context.Background(), resetToken)
	if !errors.Is(err, ErrTokenWrongType) {
		t.Fatalf("expected ErrTokenWrongType, got %v", err)
	}
	if PublicMessage(err) != "Not authenticated" {
		t.Fatalf("expected generic unauthenticated message, got %q", PublicMessage(err))
	}
}

func TestRedeemRejectsSessionToken(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.addAlice(t)

	issued, err := te.IssueSession(context.Background(), "u-alice")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	err = te.RedeemPasswordReset(context.Background(), issued.Token, "newpass1")
	if !errors.Is(err, ErrTokenWrongType) {
		t.Fatalf("expected ErrTokenWrongType, got %v", err)
	}
}

func TestValidateSessionRejectsTampering(t *testing.T) {
	te := newTestEngine(t, testConfig())

	issued, err := te.IssueSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	tampered := issued.Token[:len(issued.Token)-2] + "AA"
	if strings.HasSuffix(issued.Token, "AA") {
		tampered = issued.Token[:len(issued.Token)-2] + "BB"
	}

	for _, tok := range []string{"", "not-a-token", tampered} {
		_, err := te.ValidateSession(context.Background(), tok)
		if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected invalid, got %v", tok, err)
		}
	}
}

func TestValidateSessionRejectsOtherKey(t *testing.T) {
	te := newTestEngine(t, testConfig())

	cfg := testConfig()
	cfg.Session.PrivateKey = []byte("ffffffffffffffffffffffffffffffff")
	other := newTestEngine(t, cfg)

	issued, err := other.IssueSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if _, err := te.ValidateSession(context.Background(), issued.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestIssueSessionRequiresSubject(t *testing.T) {
	te := newTestEngine(t, testConfig())
	if _, err := te.IssueSession(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
