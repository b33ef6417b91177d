package goCred

import (
	"context"
	"time"
)

// Subject is the public profile of an authenticated principal. It never
// carries credential material.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Kind      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// DirectoryRecord pairs a Subject with its stored password hash. It is
// returned by UserDirectory.FindByIdentifier for sign-in only and is never
// handed back to callers.
type DirectoryRecord struct {
	Subject      Subject
	PasswordHash string
}

// NewSubject is the input to SubjectRegistrar.CreateSubject. Email and Mobile
// are already normalized and PasswordHash is already encoded.
type NewSubject struct {
	Name         string
	Email        string
	Mobile       string
	Kind         string
	PasswordHash string
}

// UserDirectory is the persistent store of subject profiles and password
// hashes. Identifiers passed in are normalized channels: a lowercased email
// or an E.164 mobile number.
//
// FindByIdentifier and FindByID return ErrSubjectNotFound (possibly wrapped)
// when nothing matches. Any other error is treated as an outage.
type UserDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (DirectoryRecord, error)
	FindByID(ctx context.Context, id string) (Subject, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// SubjectRegistrar is implemented by directories that can create subjects.
// Register is only available when the configured UserDirectory also
// implements it.
type SubjectRegistrar interface {
	CreateSubject(ctx context.Context, in NewSubject) (Subject, error)
}

// Notifier delivers a message to a normalized channel. subject is ignored
// by transports that have no subject line.
type Notifier interface {
	Send(ctx context.Context, channel, subject, body string) error
}

// SessionInfo describes a verified session token.
type SessionInfo struct {
	SubjectID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedSession is a freshly signed session token and its claims.
type IssuedSession struct {
	Token string
	SessionInfo
}

// SignInResult is a freshly issued session and the subject it belongs to.
type SignInResult struct {
	Token     string
	ExpiresAt time.Time
	Subject   Subject
}

// OtpIssue is returned by IssueOtp. Code is empty unless OTP.ExposeCode is set.
type OtpIssue struct {
	Channel   string
	ExpiresAt time.Time
	Code      string
}

// VerifyResult is the outcome of VerifyOtp.
type VerifyResult int

const (
	VerifyNotRequested VerifyResult = iota
	VerifyExpired
	VerifyVerified
	VerifyMismatch
	VerifyAttemptsExceeded
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyNotRequested:
		return "not_requested"
	case VerifyExpired:
		return "expired"
	case VerifyVerified:
		return "verified"
	case VerifyMismatch:
		return "mismatch"
	case VerifyAttemptsExceeded:
		return "attempts_exceeded"
	default:
		return "unknown"
	}
}

// ResetRequestResult is identical for known and unknown channels.
type ResetRequestResult struct {
	Message string
}

// RegisterRequest mirrors the registration form: Kind is the account type
// (customer or driver by default) and ConfirmPassword must equal Password.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Kind            string `json:"type"`
}

// RegisterResult carries the created subject and a session for it.
type RegisterResult struct {
	Subject   Subject
	Token     string
	ExpiresAt time.Time
	Message   string
}
