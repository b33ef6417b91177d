package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestIncAndSnapshot(t *testing.T) {
	m := New(Config{Enabled: true})

	m.Inc(MetricSignInSuccess)
	m.Inc(MetricSignInSuccess)
	m.Inc(MetricOTPIssued)

	snap := m.Snapshot()
	if snap.Counters[MetricSignInSuccess] != 2 || snap.Counters[MetricOTPIssued] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	if _, ok := snap.Counters[MetricValidateLatency]; ok {
		t.Fatal("expected histogram slots to be excluded from counters")
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("expected no histograms when latency disabled")
	}
}

func TestDisabledRecordsNothing(t *testing.T) {
	m := New(Config{})
	m.Inc(MetricSignInFailure)
	if m.Value(MetricSignInFailure) != 0 {
		t.Fatal("expected disabled metrics to ignore Inc")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("expected empty snapshot when disabled")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricSignInFailure)
	nilMetrics.Observe(MetricValidateLatency, time.Millisecond)
}

func TestObserveBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricValidateLatency, 3*time.Millisecond)
	m.Observe(MetricValidateLatency, 700*time.Millisecond)
	m.Observe(MetricSignInLatency, 40*time.Millisecond)
	m.Observe(MetricOTPIssued, time.Millisecond)

	snap := m.Snapshot()
	v := snap.Histograms[MetricValidateLatency]
	if v[0] != 1 || v[7] != 1 {
		t.Fatalf("unexpected validate buckets: %v", v)
	}
	if snap.Histograms[MetricSignInLatency][3] != 1 {
		t.Fatalf("unexpected sign-in buckets: %v", snap.Histograms[MetricSignInLatency])
	}
	if _, ok := snap.Histograms[MetricOTPIssued]; ok {
		t.Fatal("expected non-histogram id to be ignored by Observe")
	}
}

func TestConcurrentInc(t *testing.T) {
	m := New(Config{Enabled: true})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricOTPVerified)
			}
		}()
	}
	wg.Wait()
	if got := m.Value(MetricOTPVerified); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
}
