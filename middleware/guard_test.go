package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/directory/memory"
	"github.com/MrEthical07/goCred/notify"
)

func newEngine(t *testing.T) (*goCred.Engine, *memory.Directory) {
	t.Helper()

	cfg := goCred.DefaultConfig()
	cfg.Session.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16

	dir := memory.New()
	engine, err := goCred.New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithNotifier(notify.NewRecorder()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, dir
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return env
}

func TestRequireSessionRejectsMissingAndBadTokens(t *testing.T) {
	engine, _ := newEngine(t)
	h := RequireSession(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Success || env.Message != "Not authenticated" {
			t.Fatalf("%q: unexpected body %+v", header, env)
		}
	}
}

func TestRequireSessionPassesSessionInfo(t *testing.T) {
	engine, _ := newEngine(t)
	issued, err := engine.IssueSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	var got goCred.SessionInfo
	h := RequireSession(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+issued.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got.SubjectID != "u1" {
		t.Fatalf("expected session for u1, got %+v", got)
	}
}

func TestRequireUserResolvesSubject(t *testing.T) {
	engine, dir := newEngine(t)
	res, err := engine.Register(context.Background(), goCred.RegisterRequest{
		Name:            "Carol",
		Email:           "carol@example.com",
		Mobile:          "9123456780",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Kind:            "customer",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if dir.Len() != 1 {
		t.Fatalf("expected one subject, got %d", dir.Len())
	}

	var got goCred.Subject
	h := RequireUser(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || got.Email != "carol@example.com" {
		t.Fatalf("unexpected result %d %+v", rec.Code, got)
	}
}

func TestRequireUserUnknownSubjectIsUnauthorized(t *testing.T) {
	engine, _ := newEngine(t)
	issued, err := engine.IssueSession(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	h := RequireUser(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remote     string
		forwarded  string
		want       string
	}{
		{name: "remote addr", remote: "198.51.100.4:5123", want: "198.51.100.4"},
		{name: "untrusted header ignored", remote: "198.51.100.4:5123", forwarded: "203.0.113.9", want: "198.51.100.4"},
		{name: "trusted header", trustProxy: true, remote: "10.0.0.1:80", forwarded: "203.0.113.9, 10.0.0.1", want: "203.0.113.9"},
		{name: "trusted garbage header", trustProxy: true, remote: "10.0.0.1:80", forwarded: "nope", want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIP(tt.trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = goCred.ClientIPFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
