package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/goleak"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	events  []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func TestDispatcherStampsAndDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Emit(context.Background(), Event{EventType: "otp_issued", Success: true})
	d.Close()

	e := <-sink.Events()
	if e.EventType != "otp_issued" || e.Timestamp.IsZero() {
		t.Fatalf("unexpected event: %+v", e)
	}
	if _, err := ulid.Parse(e.ID); err != nil {
		t.Fatalf("expected ULID id, got %q: %v", e.ID, err)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "signin_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected some events to be dropped")
	}

	close(sink.release)
	d.Close()

	sink.mu.Lock()
	delivered := len(sink.events)
	sink.mu.Unlock()
	if uint64(delivered)+d.Dropped() != 10 {
		t.Fatalf("expected delivered+dropped=10, got %d+%d", delivered, d.Dropped())
	}
}

func TestDispatcherCloseDrainsAndIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf bytes.Buffer
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, NewJSONWriterSink(&buf))
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "reset_redeemed", Success: true})
	}
	d.Close()
	d.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 drained events, got %d", len(lines))
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil || e.EventType != "reset_redeemed" {
		t.Fatalf("unexpected JSON line %q: %v", lines[0], err)
	}

	d.Emit(context.Background(), Event{EventType: "late"})
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewSlogSink(logger).Emit(context.Background(), Event{
		ID:        "01J0000000000000000000000",
		EventType: "signin_failure",
		Channel:   "a***@b.com",
		Error:     "invalid_credential",
		Metadata:  map[string]string{"reason": "mismatch"},
	})

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"event_type":"signin_failure"`, `"channel":"a***@b.com"`, `"meta_reason":"mismatch"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
