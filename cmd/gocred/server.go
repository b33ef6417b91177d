package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/middleware"
)

const maxBodyBytes = 64 << 10

const messageBadRequest = "Invalid request body."

// server holds the HTTP handlers that front an Engine.
type server struct {
	engine     *goCred.Engine
	logger     *slog.Logger
	metrics    http.Handler
	trustProxy bool
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signin", s.handleSignIn)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /otp/send", s.handleSendOtp)
	mux.HandleFunc("POST /otp/verify", s.handleVerifyOtp)
	mux.HandleFunc("POST /forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /reset-password", s.handleResetPassword)
	mux.Handle("GET /me", middleware.RequireUser(s.engine)(http.HandlerFunc(s.handleMe)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{Success: true})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return middleware.ClientIP(s.trustProxy)(mux)
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      goCred.Subject `json:"user"`
}

func (s *server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.engine.SignIn(r.Context(), firstNonEmpty(req.Identifier, req.Email, req.Mobile), req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Data: sessionResponse{
			Token:     res.Token,
			ExpiresAt: res.ExpiresAt,
			User:      res.Subject,
		},
	})
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req goCred.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.engine.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, middleware.Envelope{
		Success: true,
		Message: res.Message,
		Data: sessionResponse{
			Token:     res.Token,
			ExpiresAt: res.ExpiresAt,
			User:      res.Subject,
		},
	})
}

type channelRequest struct {
	Channel string `json:"channel"`
	Email   string `json:"email"`
	Mobile  string `json:"mobile"`
}

func (c channelRequest) value() string {
	return firstNonEmpty(c.Channel, c.Email, c.Mobile)
}

type otpSentResponse struct {
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"otp,omitempty"`
}

func (s *server) handleSendOtp(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decode(w, r, &req) {
		return
	}

	issue, err := s.engine.IssueOtp(r.Context(), req.value())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Message: goCred.MessageOtpSent,
		Data: otpSentResponse{
			Channel:   issue.Channel,
			ExpiresAt: issue.ExpiresAt,
			Code:      issue.Code,
		},
	})
}

type verifyOtpRequest struct {
	channelRequest
	OTP string `json:"otp"`
}

func (s *server) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := s.engine.VerifyOtp(r.Context(), req.value(), req.OTP); err != nil {
		s.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Message: goCred.MessageOtpVerified,
	})
}

func (s *server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.engine.InitiatePasswordReset(r.Context(), req.value())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Message: res.Message,
	})
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		s.fail(w, r, goCred.ErrPasswordMismatch)
		return
	}

	if err := s.engine.RedeemPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Message: goCred.MessagePasswordReset,
	})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	subject, _ := middleware.SubjectFromContext(r.Context())
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Data:    subject,
	})
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	middleware.WriteJSON(w, status, middleware.Envelope{Message: goCred.PublicMessage(err)})
}

// statusFor maps engine errors onto HTTP status codes. Token errors are
// checked before ErrSubjectNotFound, which a reset redemption wraps in
// ErrTokenInvalid.
func statusFor(err error) int {
	switch {
	case errors.Is(err, goCred.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goCred.ErrInvalidCredential),
		errors.Is(err, goCred.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, goCred.ErrRegistrationDisabled):
		return http.StatusForbidden
	case errors.Is(err, goCred.ErrIdentifierTaken),
		errors.Is(err, goCred.ErrTokenAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, goCred.ErrInvalidChannel),
		errors.Is(err, goCred.ErrInvalidRegistration),
		errors.Is(err, goCred.ErrPasswordPolicy),
		errors.Is(err, goCred.ErrPasswordMismatch),
		errors.Is(err, goCred.ErrChallengeNotFound),
		errors.Is(err, goCred.ErrChallengeExpired),
		errors.Is(err, goCred.ErrChallengeMismatch),
		errors.Is(err, goCred.ErrTokenExpired),
		errors.Is(err, goCred.ErrTokenInvalid),
		errors.Is(err, goCred.ErrTokenWrongType):
		return http.StatusBadRequest
	case errors.Is(err, goCred.ErrSubjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, goCred.ErrDeliveryFailed),
		errors.Is(err, goCred.ErrDirectoryUnavailable),
		errors.Is(err, goCred.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.Envelope{Message: messageBadRequest})
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
