package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/directory/memory"
	"github.com/MrEthical07/goCred/internal/logging"
	promexport "github.com/MrEthical07/goCred/metrics/export/prometheus"
	"github.com/MrEthical07/goCred/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_\-\.]+)`)

type testServer struct {
	*httptest.Server
	engine *goCred.Engine
	inbox  *notify.Recorder
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, mutate func(*serverConfig)) *testServer {
	t.Helper()

	cfg := defaultServerConfig()
	cfg.SigningKey = strings.Repeat("k", 32)
	cfg.Auth.Password.Memory = 8192
	cfg.Auth.Password.Time = 1
	cfg.Auth.Password.Parallelism = 1
	cfg.Auth.OTP.ExposeCode = true
	cfg.Auth.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	inbox := notify.NewRecorder()
	engine, err := buildEngine(cfg, &backends{
		directory: memory.New(),
		notifier:  inbox,
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := &server{
		engine:  engine,
		logger:  logging.Discard(),
		metrics: promexport.NewPrometheusExporter(engine).Handler(),
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, engine: engine, inbox: inbox}
}

func (ts *testServer) post(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, readEnvelope(t, resp)
}

func (ts *testServer) get(t *testing.T, path, token string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, readEnvelope(t, resp)
}

func readEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func registerAlice(t *testing.T, ts *testServer) string {
	t.Helper()
	status, env := ts.post(t, "/register", map[string]string{
		"name":             "Alice",
		"email":            "A@B.com",
		"mobile":           "98765 43210",
		"password":         "secret1",
		"confirm_password": "secret1",
		"type":             "customer",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, goCred.MessageAccountCreated, env.Message)

	var data sessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "a@b.com", data.User.Email)
	assert.Equal(t, "+919876543210", data.User.Mobile)
	return data.Token
}

func TestServer_RegisterSignInAndMe(t *testing.T) {
	ts := newTestServer(t, nil)
	registerAlice(t, ts)

	status, env := ts.post(t, "/signin", map[string]string{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)

	status, env = ts.get(t, "/me", session.Token)
	require.Equal(t, http.StatusOK, status)
	var me goCred.Subject
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Alice", me.Name)
	assert.Equal(t, "customer", me.Kind)

	status, env = ts.post(t, "/signin", map[string]string{"identifier": "9876543210", "password": "nope!!"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Incorrect email or password.", env.Message)
	assert.False(t, env.Success)
}

func TestServer_MeRequiresToken(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, token := range []string{"", "garbage"} {
		status, env := ts.get(t, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Not authenticated", env.Message)
	}
}

func TestServer_RegisterDuplicate(t *testing.T) {
	ts := newTestServer(t, nil)
	registerAlice(t, ts)

	status, env := ts.post(t, "/register", map[string]string{
		"name":             "Other",
		"email":            "other@b.com",
		"mobile":           "+91 98765 43210",
		"password":         "secret1",
		"confirm_password": "secret1",
		"type":             "driver",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "The email or mobile already exists.", env.Message)
}

func TestServer_OtpSendAndVerify(t *testing.T) {
	ts := newTestServer(t, nil)

	status, env := ts.post(t, "/otp/send", map[string]string{"email": "New@Example.com"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, goCred.MessageOtpSent, env.Message)

	var sent otpSentResponse
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, "new@example.com", sent.Channel)
	require.Len(t, sent.Code, 6)

	msg, ok := ts.inbox.Last("new@example.com")
	require.True(t, ok)
	assert.Contains(t, msg.Body, sent.Code)

	status, env = ts.post(t, "/otp/verify", map[string]string{"channel": "new@example.com", "otp": "x" + sent.Code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP.", env.Message)

	status, env = ts.post(t, "/otp/verify", map[string]string{"email": "new@example.com", "otp": sent.Code})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, goCred.MessageOtpVerified, env.Message)

	status, env = ts.post(t, "/otp/verify", map[string]string{"email": "new@example.com", "otp": sent.Code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "OTP not requested for this channel.", env.Message)
}

func TestServer_OtpCodeHiddenWhenNotExposed(t *testing.T) {
	ts := newTestServer(t, func(cfg *serverConfig) {
		cfg.Auth.OTP.ExposeCode = false
	})

	status, env := ts.post(t, "/otp/send", map[string]string{"mobile": "9123456789"})
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), `"otp"`)
}

func TestServer_OtpRateLimited(t *testing.T) {
	ts := newTestServer(t, func(cfg *serverConfig) {
		cfg.Auth.Security.MaxOTPIssues = 1
	})

	status, _ := ts.post(t, "/otp/send", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, status)

	status, env := ts.post(t, "/otp/send", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Too many requests. Please try again later.", env.Message)
}

func TestServer_PasswordResetFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	registerAlice(t, ts)

	status, known := ts.post(t, "/forgot-password", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, status)
	status, unknown := ts.post(t, "/forgot-password", map[string]string{"email": "ghost@b.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, known, unknown)
	assert.Equal(t, goCred.MessageResetRequested, known.Message)

	msg, ok := ts.inbox.Last("a@b.com")
	require.True(t, ok)
	m := resetTokenPattern.FindStringSubmatch(msg.Body)
	require.Len(t, m, 2)
	token := m[1]

	status, env := ts.post(t, "/reset-password", map[string]string{
		"token": token, "password": "newpass1", "confirm_password": "different",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password not matching with confirm password.", env.Message)

	status, env = ts.post(t, "/reset-password", map[string]string{
		"token": token, "password": "newpass1", "confirm_password": "newpass1",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, goCred.MessagePasswordReset, env.Message)

	status, env = ts.post(t, "/reset-password", map[string]string{"token": token, "password": "another1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "You've already changed your password.", env.Message)

	status, _ = ts.post(t, "/signin", map[string]string{"email": "a@b.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_BadBody(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/signin", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, messageBadRequest, readEnvelope(t, resp).Message)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	registerAlice(t, ts)

	status, env := ts.get(t, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "gocred_registration_success_total 1")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{goCred.ErrRateLimited, http.StatusTooManyRequests},
		{goCred.ErrInvalidCredential, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", goCred.ErrUnauthenticated, goCred.ErrTokenExpired), http.StatusUnauthorized},
		{goCred.ErrRegistrationDisabled, http.StatusForbidden},
		{goCred.ErrSubjectNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %w", goCred.ErrTokenInvalid, goCred.ErrSubjectNotFound), http.StatusBadRequest},
		{goCred.ErrTokenAlreadyUsed, http.StatusConflict},
		{goCred.ErrIdentifierTaken, http.StatusConflict},
		{goCred.ErrChallengeAttemptsExceeded, http.StatusBadRequest},
		{goCred.ErrTokenExpired, http.StatusBadRequest},
		{fmt.Errorf("%w: dial", goCred.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{goCred.ErrDeliveryFailed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
