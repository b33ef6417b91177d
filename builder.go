package goCred

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goCred/channel"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/logging"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
	"github.com/MrEthical07/goCred/internal/rate"
	"github.com/MrEthical07/goCred/internal/stores"
	"github.com/MrEthical07/goCred/jwt"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/store"
	"github.com/redis/go-redis/v9"
)

const (
	otpStorePrefix    = "otp"
	ledgerStorePrefix = "redeemed"
)

// Builder assembles an Engine from a Config and its collaborators.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient

	directory UserDirectory
	notifier  Notifier
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the ephemeral store for challenges, redemption records and
// rate-limit counters. The caller keeps ownership and must close it.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis backs the ephemeral store with client. It is ignored when
// WithStore is also set. The caller keeps ownership of client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the user directory. If it also implements
// SubjectRegistrar, Register is enabled.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithNotifier sets the transport for OTP codes and reset links.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLogger sets the engine logger. The default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token issue, expiry checks
// and challenge ages. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithAuditSink sets where audit events go. It has no effect unless
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign-in and validate latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
//
// Build may return an error when the configuration is invalid, the key
// material does not parse, or a required collaborator is missing. A Builder
// can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}

	// -------- KEY MATERIAL --------
	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	dummyHash, err := ph.RandomHash()
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		SessionTTL:    cfg.Session.TTL,
		ResetTTL:      cfg.PasswordReset.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Session.SigningMethod),
		PrivateKey:    cfg.Session.PrivateKey,
		PublicKey:     cfg.Session.PublicKey,
		Issuer:        cfg.Session.Issuer,
		Audience:      cfg.Session.Audience,
		Leeway:        cfg.Session.Leeway,
		MaxFutureIAT:  cfg.Session.MaxFutureIAT,
		KeyID:         cfg.Session.KeyID,
		VerifyKeys:    cfg.Session.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	// -------- EPHEMERAL STORE --------
	kv := b.store
	var owned store.Store
	if kv == nil {
		if b.redis != nil {
			kv = store.NewRedis(b.redis)
		} else {
			mem := store.NewMemory(store.WithClock(now), store.WithSweepInterval(time.Minute))
			kv = mem
			owned = mem
		}
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		now:        now,
		logger:     logger,
		store:      kv,
		ownedStore: owned,
		directory:  b.directory,
		notifier:   b.notifier,
		channels:   channel.New(cfg.Delivery.DefaultRegion),
		hasher:     ph,
		dummyHash:  dummyHash,
		jwtManager: jm,
	}
	if reg, ok := b.directory.(SubjectRegistrar); ok {
		engine.registrar = reg
	}

	engine.challenges = stores.NewChallengeStore(kv, otpStorePrefix, cfg.OTP.TTL, cfg.OTP.MaxAttempts)
	engine.ledger = stores.NewRedemptionLedger(kv, ledgerStorePrefix, ledgerTTL(cfg))
	engine.rateLimiter = rate.New(kv, rate.Config{
		EnableIPThrottle:  cfg.Security.EnableIPThrottle,
		MaxSignInFailures: cfg.Security.MaxSignInFailures,
		SignInWindow:      cfg.Security.SignInWindow,
		MaxOTPIssues:      cfg.Security.MaxOTPIssues,
		OTPWindow:         cfg.Security.OTPWindow,
		MaxResetRequests:  cfg.Security.MaxResetRequests,
		ResetWindow:       cfg.Security.ResetWindow,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	b.built = true

	return engine, nil
}

// ledgerTTL keeps a redemption record for as long as the parser still
// accepts the token: TTL past issue, plus clock leeway, plus one second
// for the whole-second iat.
func ledgerTTL(cfg Config) time.Duration {
	return cfg.PasswordReset.TTL + max(cfg.PasswordReset.LedgerGrace, cfg.Session.Leeway) + time.Second
}
