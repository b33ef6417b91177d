package goCred

import (
	"context"
	"errors"
	"testing"
)

func TestSignInIssuesSessionForSubject(t *testing.T) {
	te := newTestEngine(t, testConfig())
	alice := te.addAlice(t)

	res, err := te.SignIn(context.Background(), "A@B.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if res.Subject.ID != alice.ID || res.Subject.Name != "Alice" {
		t.Fatalf("unexpected subject: %+v", res.Subject)
	}
	if want := te.clock.Now().Add(testConfig().Session.TTL); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	info, err := te.ValidateSession(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if info.SubjectID != alice.ID {
		t.Fatalf("expected subject %q, got %q", alice.ID, info.SubjectID)
	}
}

func TestSignInByMobileNumber(t *testing.T) {
	te := newTestEngine(t, testConfig())
	alice := te.addAlice(t)

	res, err := te.SignIn(context.Background(), "98765 43210", "secret1")
	if err != nil {
		t.Fatalf("SignIn by mobile failed: %v", err)
	}
	if res.Subject.ID != alice.ID {
		t.Fatalf("unexpected subject: %+v", res.Subject)
	}
}

func TestSignInUnknownAndWrongPasswordLookAlike(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.addAlice(t)

	_, wrongErr := te.SignIn(context.Background(), "a@b.com", "secret2")
	_, unknownErr := te.SignIn(context.Background(), "nobody@b.com", "secret1")

	if !errors.Is(wrongErr, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for wrong password, got %v", wrongErr)
	}
	if !errors.Is(unknownErr, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for unknown account, got %v", unknownErr)
	}
	if PublicMessage(wrongErr) != PublicMessage(unknownErr) {
		t.Fatalf("messages differ: %q vs %q", PublicMessage(wrongErr), PublicMessage(unknownErr))
	}
	if PublicMessage(wrongErr) != "Incorrect email or password." {
		t.Fatalf("unexpected message %q", PublicMessage(wrongErr))
	}
}

func TestSignInRateLimitedAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxSignInFailures = 3
	te := newTestEngine(t, cfg)
	te.addAlice(t)

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	for i := 0; i < 3; i++ {
		if _, err := te.SignIn(ctx, "a@b.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("attempt %d: expected ErrInvalidCredential, got %v", i, err)
		}
	}

	if _, err := te.SignIn(ctx, "a@b.com", "secret1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	te.clock.Advance(cfg.Security.SignInWindow + 1)
	if _, err := te.SignIn(ctx, "a@b.com", "secret1"); err != nil {
		t.Fatalf("expected sign-in after window, got %v", err)
	}
}

func TestSignInDirectoryOutageIsNotCredentialError(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.addAlice(t)
	te.dir.failErr = errors.New("connection refused")

	_, err := te.SignIn(context.Background(), "a@b.com", "secret1")
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("outage must not look like a bad credential")
	}
}

func TestCurrentUserReturnsLiveSubject(t *testing.T) {
	te := newTestEngine(t, testConfig())
	alice := te.addAlice(t)

	res, err := te.SignIn(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	got, err := te.CurrentUser(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if got != alice {
		t.Fatalf("expected %+v, got %+v", alice, got)
	}
}

func TestCurrentUserDeletedSubjectIsUnauthenticated(t *testing.T) {
	te := newTestEngine(t, testConfig())
	alice := te.addAlice(t)

	res, err := te.SignIn(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	te.dir.remove(alice.ID)

	_, err = te.CurrentUser(context.Background(), res.Token)
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected unauthenticated subject-not-found, got %v", err)
	}
	if PublicMessage(err) != "Not authenticated" {
		t.Fatalf("unexpected message %q", PublicMessage(err))
	}
}
