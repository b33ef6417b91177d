package goCred

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the full engine configuration. Start from DefaultConfig.
type Config struct {
	Session        SessionConfig       `koanf:"session"`
	Password       PasswordConfig      `koanf:"password"`
	OTP            OTPConfig           `koanf:"otp"`
	PasswordReset  PasswordResetConfig `koanf:"password_reset"`
	Registration   RegistrationConfig  `koanf:"registration"`
	Delivery       DeliveryConfig      `koanf:"delivery"`
	Security       SecurityConfig      `koanf:"security"`
	Audit          AuditConfig         `koanf:"audit"`
	Metrics        MetricsConfig       `koanf:"metrics"`
	ProductionMode bool                `koanf:"production_mode"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session token signing and lifetime.
//
// Key material is not loaded through koanf tags; callers set PrivateKey,
// PublicKey and VerifyKeys directly.
type SessionConfig struct {
	TTL           time.Duration     `koanf:"ttl"`
	SigningMethod string            `koanf:"signing_method"` // "hs256" (default) or "ed25519"
	PrivateKey    []byte            `koanf:"-"`
	PublicKey     []byte            `koanf:"-"`
	KeyID         string            `koanf:"key_id"`
	VerifyKeys    map[string][]byte `koanf:"-"`
	Issuer        string            `koanf:"issuer"`
	Audience      string            `koanf:"audience"`
	Leeway        time.Duration     `koanf:"leeway"`
	MaxFutureIAT  time.Duration     `koanf:"max_future_iat"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters.
type PasswordConfig struct {
	Memory           uint32 `koanf:"memory"` // in KB
	Time             uint32 `koanf:"time"`
	Parallelism      uint8  `koanf:"parallelism"`
	SaltLength       uint32 `koanf:"salt_length"`
	KeyLength        uint32 `koanf:"key_length"`
	MaxPasswordBytes int    `koanf:"max_password_bytes"`
	UpgradeOnLogin   bool   `koanf:"upgrade_on_login"`
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls one-time code width, lifetime and attempts.
//
// ExposeCode returns the generated code from IssueOtp. It exists for local
// development and is rejected in ProductionMode.
type OTPConfig struct {
	Digits      int           `koanf:"digits"`
	TTL         time.Duration `koanf:"ttl"`
	MaxAttempts int           `koanf:"max_attempts"`
	ExposeCode  bool          `koanf:"expose_code"`
}

// PasswordResetConfig controls reset link lifetime and redemption.
//
// LedgerGrace is how long a redemption record outlives the token's own
// expiry. The engine never keeps it for less than Session.Leeway, the time
// an expired token is still accepted.
//
// ResponseFloor is the minimum time a reset request takes, known channel
// or not. Zero turns the floor off.
type PasswordResetConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	LedgerGrace   time.Duration `koanf:"ledger_grace"`
	ResponseFloor time.Duration `koanf:"response_floor"`
}

// RegistrationConfig controls self-service sign-up.
type RegistrationConfig struct {
	Enabled           bool     `koanf:"enabled"`
	MinPasswordLength int      `koanf:"min_password_length"`
	MinMobileDigits   int      `koanf:"min_mobile_digits"`
	AllowedKinds      []string `koanf:"allowed_kinds"`
}

// DeliveryConfig controls outgoing messages.
//
// ResetLinkBaseURL is the front-end origin that serves /reset-password.
// DefaultRegion is the ISO 3166 region used to parse mobile numbers that
// carry no country code.
type DeliveryConfig struct {
	ResetLinkBaseURL string `koanf:"reset_link_base_url"`
	AppName          string `koanf:"app_name"`
	DefaultRegion    string `koanf:"default_region"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig sets the rate limit budgets.
//
// A zero Max* value disables the corresponding budget.
type SecurityConfig struct {
	EnableIPThrottle  bool          `koanf:"enable_ip_throttle"`
	MaxSignInFailures int           `koanf:"max_signin_failures"`
	SignInWindow      time.Duration `koanf:"signin_window"`
	MaxOTPIssues      int           `koanf:"max_otp_issues"`
	OTPWindow         time.Duration `koanf:"otp_window"`
	MaxResetRequests  int           `koanf:"max_reset_requests"`
	ResetWindow       time.Duration `koanf:"reset_window"`
}

// AuditConfig controls the audit event pipeline.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Signing keys are not
// set, so the result does not validate until the caller provides them.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:           15 * time.Minute,
			SigningMethod: "hs256",
			MaxFutureIAT:  10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		OTP: OTPConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 5,
			ExposeCode:  false,
		},
		PasswordReset: PasswordResetConfig{
			TTL:           30 * time.Minute,
			LedgerGrace:   time.Minute,
			ResponseFloor: 250 * time.Millisecond,
		},
		Registration: RegistrationConfig{
			Enabled:           true,
			MinPasswordLength: 6,
			MinMobileDigits:   10,
			AllowedKinds:      []string{"customer", "driver"},
		},
		Delivery: DeliveryConfig{
			ResetLinkBaseURL: "http://localhost:8081",
			AppName:          "goCred",
			DefaultRegion:    "IN",
		},
		Security: SecurityConfig{
			EnableIPThrottle:  true,
			MaxSignInFailures: 5,
			SignInWindow:      15 * time.Minute,
			MaxOTPIssues:      5,
			OTPWindow:         15 * time.Minute,
			MaxResetRequests:  5,
			ResetWindow:       time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		ProductionMode: false,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.PrivateKey = cloneBytes(cfg.Session.PrivateKey)
	out.Session.PublicKey = cloneBytes(cfg.Session.PublicKey)
	if cfg.Session.VerifyKeys != nil {
		out.Session.VerifyKeys = make(map[string][]byte, len(cfg.Session.VerifyKeys))
		for kid, key := range cfg.Session.VerifyKeys {
			out.Session.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	out.Registration.AllowedKinds = append([]string(nil), cfg.Registration.AllowedKinds...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the engine cannot run with. It returns the
// first problem found.
func (c *Config) Validate() error {
	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	switch c.Session.SigningMethod {
	case "hs256":
		if len(c.Session.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	case "ed25519":
		if len(c.Session.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.Session.PublicKey) == 0 && len(c.Session.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported Session signing method")
	}
	if c.Session.Leeway < 0 || c.Session.Leeway > 2*time.Minute {
		return errors.New("Session Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8192 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// OTP
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts < 1 || c.OTP.MaxAttempts > 20 {
		return errors.New("OTP MaxAttempts must be between 1 and 20")
	}

	// Password reset
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}
	if c.PasswordReset.LedgerGrace < 0 {
		return errors.New("PasswordReset LedgerGrace must be >= 0")
	}
	if c.PasswordReset.ResponseFloor < 0 || c.PasswordReset.ResponseFloor > 5*time.Second {
		return errors.New("PasswordReset ResponseFloor must be between 0 and 5s")
	}

	// Registration
	if c.Registration.Enabled {
		if c.Registration.MinPasswordLength < 1 {
			return errors.New("Registration MinPasswordLength must be >= 1")
		}
		if c.Registration.MinMobileDigits < 1 {
			return errors.New("Registration MinMobileDigits must be >= 1")
		}
		if len(c.Registration.AllowedKinds) == 0 {
			return errors.New("Registration AllowedKinds must not be empty")
		}
	}

	// Delivery
	base, err := url.Parse(c.Delivery.ResetLinkBaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return errors.New("Delivery ResetLinkBaseURL must be an absolute http(s) URL")
	}
	if strings.TrimSpace(c.Delivery.AppName) == "" {
		return errors.New("Delivery AppName is required")
	}
	if len(c.Delivery.DefaultRegion) != 2 {
		return errors.New("Delivery DefaultRegion must be a two-letter region code")
	}

	// Security
	if c.Security.MaxSignInFailures < 0 || c.Security.MaxOTPIssues < 0 || c.Security.MaxResetRequests < 0 {
		return errors.New("Security budgets must be >= 0")
	}
	if c.Security.MaxSignInFailures > 0 && c.Security.SignInWindow <= 0 {
		return errors.New("Security SignInWindow must be > 0 when MaxSignInFailures is set")
	}
	if c.Security.MaxOTPIssues > 0 && c.Security.OTPWindow <= 0 {
		return errors.New("Security OTPWindow must be > 0 when MaxOTPIssues is set")
	}
	if c.Security.MaxResetRequests > 0 && c.Security.ResetWindow <= 0 {
		return errors.New("Security ResetWindow must be > 0 when MaxResetRequests is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.ProductionMode {
		if c.Session.SigningMethod == "hs256" && len(c.Session.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if c.Session.TTL > 24*time.Hour {
			return errors.New("ProductionMode requires Session TTL <= 24h")
		}
		if c.Password.Memory < 65536 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if c.OTP.ExposeCode {
			return errors.New("ProductionMode forbids OTP ExposeCode")
		}
		if c.OTP.Digits < 6 {
			return errors.New("ProductionMode requires OTP Digits >= 6")
		}
		if c.Delivery.ResetLinkBaseURL != "" && base.Scheme != "https" {
			return errors.New("ProductionMode requires an https ResetLinkBaseURL")
		}
	}

	return nil
}
