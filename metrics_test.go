package goCred

import (
	"context"
	"sync"
	"testing"
)

func metricsConfig() Config {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func TestMetricsDisabledNoIncrement(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.addAlice(t)

	if _, err := te.SignIn(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricSignInSuccess]; got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsCountFlowOutcomes(t *testing.T) {
	te := newTestEngine(t, metricsConfig())
	te.addAlice(t)
	ctx := context.Background()

	_, _ = te.SignIn(ctx, "a@b.com", "secret1")
	_, _ = te.SignIn(ctx, "a@b.com", "wrong-pass")
	_, _ = te.ValidateSession(ctx, "bad-token")
	issue, _ := te.IssueOtp(ctx, "a@b.com")
	_, _ = te.VerifyOtp(ctx, "a@b.com", issue.Code)
	_, _ = te.VerifyOtp(ctx, "a@b.com", issue.Code)

	snap := te.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricSignInSuccess:   1,
		MetricSignInFailure:   1,
		MetricSessionIssued:   1,
		MetricSessionRejected: 1,
		MetricOTPIssued:       1,
		MetricOTPVerified:     1,
		MetricOTPNotRequested: 1,
	}
	for id, n := range want {
		if got := snap.Counters[id]; got != n {
			t.Fatalf("metric %d: expected %d, got %d", id, n, got)
		}
	}

	var observed uint64
	for _, c := range snap.Histograms[MetricValidateLatency] {
		observed += c
	}
	if observed != 1 {
		t.Fatalf("expected one validate latency observation, got %d", observed)
	}
}

func TestMetricsReplayCounted(t *testing.T) {
	te := newTestEngine(t, metricsConfig())
	alice := te.addAlice(t)
	ctx := context.Background()

	token, _, err := te.jwtManager.IssueReset(alice.ID, alice.Email, te.clock.Now())
	if err != nil {
		t.Fatalf("IssueReset failed: %v", err)
	}
	_ = te.RedeemPasswordReset(ctx, token, "brand-new")
	_ = te.RedeemPasswordReset(ctx, token, "brand-new")

	snap := te.MetricsSnapshot()
	if snap.Counters[MetricPasswordResetRedeemSuccess] != 1 || snap.Counters[MetricPasswordResetReplay] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestMetricsConcurrentValidateSafe(t *testing.T) {
	te := newTestEngine(t, metricsConfig())

	const goroutines = 16
	const perG = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				_, _ = te.ValidateSession(context.Background(), "bad-token")
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := te.MetricsSnapshot().Counters[MetricSessionRejected]; got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}
