package goCred

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/notify"
)

func TestIssueOtpSendsCodeAndVerifiesOnce(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	issue, err := te.IssueOtp(ctx, " A@B.com ")
	if err != nil {
		t.Fatalf("IssueOtp failed: %v", err)
	}
	if issue.Channel != "a@b.com" {
		t.Fatalf("expected normalized channel, got %q", issue.Channel)
	}
	if len(issue.Code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", issue.Code)
	}

	msg, ok := te.inbox.Last("a@b.com")
	if !ok {
		t.Fatalf("expected a message for a@b.com")
	}
	if msg.Subject != notify.OTPSubject || !strings.Contains(msg.Body, issue.Code) {
		t.Fatalf("unexpected message: %+v", msg)
	}

	res, err := te.VerifyOtp(ctx, "a@b.com", issue.Code)
	if err != nil || res != VerifyVerified {
		t.Fatalf("expected verified, got %v / %v", res, err)
	}

	res, err = te.VerifyOtp(ctx, "a@b.com", issue.Code)
	if res != VerifyNotRequested || !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected second verify to be not requested, got %v / %v", res, err)
	}
}

func TestIssueOtpHidesCodeUnlessExposed(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.ExposeCode = false
	te := newTestEngine(t, cfg)

	issue, err := te.IssueOtp(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("IssueOtp failed: %v", err)
	}
	if issue.Code != "" {
		t.Fatalf("expected code to be hidden, got %q", issue.Code)
	}
	if te.inbox.Count() != 1 {
		t.Fatalf("expected one message, got %d", te.inbox.Count())
	}
}

func TestReissueInvalidatesPreviousCode(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	first, err := te.IssueOtp(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("IssueOtp failed: %v", err)
	}
	var second OtpIssue
	for {
		second, err = te.IssueOtp(ctx, "a@b.com")
		if err != nil {
			t.Fatalf("IssueOtp failed: %v", err)
		}
		if second.Code != first.Code {
			break
		}
	}

	if res, err := te.VerifyOtp(ctx, "a@b.com", first.Code); res != VerifyMismatch || !errors.Is(err, ErrChallengeMismatch) {
		t.Fatalf("expected old code to mismatch, got %v / %v", res, err)
	}
	if res, err := te.VerifyOtp(ctx, "a@b.com", second.Code); res != VerifyVerified || err != nil {
		t.Fatalf("expected new code to verify, got %v / %v", res, err)
	}
}

func TestVerifyOtpExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.TTL = time.Minute
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	issue, err := te.IssueOtp(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("IssueOtp failed: %v", err)
	}

	te.clock.Advance(time.Minute)
	res, err := te.VerifyOtp(ctx, "a@b.com", issue.Code)
	if res != VerifyExpired || !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected expired at TTL, got %v / %v", res, err)
	}

	// Expired challenges are removed.
	res, err = te.VerifyOtp(ctx, "a@b.com", issue.Code)
	if res != VerifyNotRequested || !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected not requested after expiry, got %v / %v", res, err)
	}
}

func TestVerifyOtpAttemptCeilingPurgesChallenge(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxAttempts = 3
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	issue, err := te.IssueOtp(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("IssueOtp failed: %v", err)
	}
	wrong := "000000"
	if issue.Code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 2; i++ {
		if res, err := te.VerifyOtp(ctx, "a@b.com", wrong); res != VerifyMismatch || !errors.Is(err, ErrChallengeMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v / %v", i, res, err)
		}
	}
	res, err := te.VerifyOtp(ctx, "a@b.com", wrong)
	if res != VerifyAttemptsExceeded || !errors.Is(err, ErrChallengeAttemptsExceeded) {
		t.Fatalf("expected attempts exceeded, got %v / %v", res, err)
	}
	if !errors.Is(err, ErrChallengeMismatch) {
		t.Fatalf("attempts exceeded should still be a mismatch")
	}

	res, err = te.VerifyOtp(ctx, "a@b.com", issue.Code)
	if res != VerifyNotRequested || !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected purged challenge, got %v / %v", res, err)
	}
}

func TestVerifyOtpWithoutIssue(t *testing.T) {
	te := newTestEngine(t, testConfig())

	res, err := te.VerifyOtp(context.Background(), "a@b.com", "123456")
	if res != VerifyNotRequested || !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected not requested, got %v / %v", res, err)
	}
	if PublicMessage(err) != "OTP not requested for this channel." {
		t.Fatalf("unexpected message %q", PublicMessage(err))
	}
}

func TestVerifyOtpConcurrentSingleWinner(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	issue, err := te.IssueOtp(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("IssueOtp failed: %v", err)
	}

	const workers = 16
	var (
		wg       sync.WaitGroup
		verified atomic.Int32
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if res, _ := te.VerifyOtp(ctx, "a@b.com", issue.Code); res == VerifyVerified {
				verified.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := verified.Load(); got != 1 {
		t.Fatalf("expected exactly one verification, got %d", got)
	}
}

func TestIssueOtpDeliveryFailureKeepsChallenge(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	te.inbox.FailWith(errors.New("smtp: 451 try later"))
	issue, err := te.IssueOtp(ctx, "a@b.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if issue.Code != "" {
		t.Fatalf("failed issue must not return a code")
	}

	rec, err := te.challenges.Get(ctx, "a@b.com")
	if err != nil || rec == nil {
		t.Fatalf("expected challenge to remain after delivery failure, got %v / %v", rec, err)
	}
}

func TestIssueOtpInvalidChannel(t *testing.T) {
	te := newTestEngine(t, testConfig())

	for _, raw := range []string{"", "not an address", "12", "a@"} {
		if _, err := te.IssueOtp(context.Background(), raw); !errors.Is(err, ErrInvalidChannel) {
			t.Fatalf("%q: expected ErrInvalidChannel, got %v", raw, err)
		}
	}
	if te.inbox.Count() != 0 {
		t.Fatalf("expected nothing sent, got %d", te.inbox.Count())
	}
}

func TestIssueOtpRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxOTPIssues = 2
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := te.IssueOtp(ctx, "a@b.com"); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}
	if _, err := te.IssueOtp(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := te.IssueOtp(ctx, "c@d.com"); err != nil {
		t.Fatalf("other channel should not be limited: %v", err)
	}
}
