package internaldefs

import (
	"strings"
	"testing"

	goCred "github.com/MrEthical07/goCred"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[goCred.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %q", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gocred_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	hist := map[goCred.MetricID]bool{}
	for _, def := range HistogramDefs {
		hist[def.ID] = true
	}

	for id := goCred.MetricID(0); id <= goCred.MetricSignInLatency; id++ {
		if !seen[id] && !hist[id] {
			t.Fatalf("metric %d has no exporter definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatalf("bounds and suffixes disagree")
	}
}
