package goCred

import "time"

// SecurityReport summarizes the security posture of a built Engine. It
// carries no key material and is safe to log at startup.
type SecurityReport struct {
	ProductionMode     bool
	SigningAlgorithm   string
	SessionTTL         time.Duration
	ResetTTL           time.Duration
	Argon2             PasswordConfigReport
	OTPDigits          int
	OTPMaxAttempts     int
	OTPCodeExposed     bool
	RateLimitingActive bool
	IPThrottleActive   bool
	RegistrationActive bool
	AuditActive        bool
	MetricsActive      bool
}

// PasswordConfigReport lists the argon2id parameters new hashes are made with.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the effective configuration of e.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	sec := e.config.Security
	rateLimiting := sec.MaxSignInFailures > 0 ||
		sec.MaxOTPIssues > 0 ||
		sec.MaxResetRequests > 0

	return SecurityReport{
		ProductionMode:   e.config.ProductionMode,
		SigningAlgorithm: e.config.Session.SigningMethod,
		SessionTTL:       e.config.Session.TTL,
		ResetTTL:         e.config.PasswordReset.TTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		OTPDigits:          e.config.OTP.Digits,
		OTPMaxAttempts:     e.config.OTP.MaxAttempts,
		OTPCodeExposed:     e.config.OTP.ExposeCode,
		RateLimitingActive: rateLimiting,
		IPThrottleActive:   rateLimiting && sec.EnableIPThrottle,
		RegistrationActive: e.config.Registration.Enabled && e.registrar != nil,
		AuditActive:        e.audit != nil,
		MetricsActive:      e.config.Metrics.Enabled,
	}
}
