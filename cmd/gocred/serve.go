package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/directory/memory"
	"github.com/MrEthical07/goCred/directory/postgres"
	"github.com/MrEthical07/goCred/internal/logging"
	promexport "github.com/MrEthical07/goCred/metrics/export/prometheus"
	"github.com/MrEthical07/goCred/notify"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authentication API over HTTP",
		Long: `serve exposes sign-in, registration, OTP and password reset endpoints
backed by a goCred engine. Without --redis-addr challenges live in process;
without --database-url users live in memory and are lost on exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags(), os.Environ())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("redis-addr", "", "Redis address for challenges and rate limits")
	fs.String("database-url", "", "PostgreSQL URL for the user directory")
	fs.Bool("trust-proxy", false, "take the client IP from X-Forwarded-For")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Bool("expose-otp", false, "return OTP codes in API responses (development only)")
	fs.Bool("production", false, "enforce production configuration rules")
	fs.Bool("metrics", false, "enable counters and the /metrics endpoint")
	fs.Bool("audit", false, "write audit events to the log")
	fs.String("reset-url", "", "front-end origin used in password reset links")
}

func runServe(ctx context.Context, cfg serverConfig) error {
	logger := logging.Setup("gocred", version, logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	}, nil)

	deps, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	engine, err := buildEngine(cfg, deps, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("engine ready",
		"production_mode", report.ProductionMode,
		"signing_algorithm", report.SigningAlgorithm,
		"session_ttl", report.SessionTTL,
		"otp_code_exposed", report.OTPCodeExposed,
		"rate_limiting", report.RateLimitingActive,
		"registration", report.RegistrationActive,
		"audit", report.AuditActive,
		"metrics", report.MetricsActive,
	)

	srv := &server{
		engine:     engine,
		logger:     logger,
		trustProxy: cfg.TrustProxy,
	}
	if cfg.Auth.Metrics.Enabled {
		srv.metrics = promexport.NewPrometheusExporter(engine).Handler()
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// backends are the external systems the engine runs on.
type backends struct {
	redis     redis.UniversalClient
	pool      *pgxpool.Pool
	directory goCred.UserDirectory
	notifier  goCred.Notifier
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func openBackends(ctx context.Context, cfg serverConfig, logger *slog.Logger) (*backends, error) {
	deps := &backends{}

	if cfg.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		deps.redis = client
		logger.Info("using redis store", "addr", cfg.RedisAddr)
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		deps.pool = pool
		dir := postgres.New(pool)
		if err := dir.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, err
		}
		deps.directory = dir
		logger.Info("using postgres directory")
	} else {
		deps.directory = memory.New()
		logger.Warn("using in-memory directory; users are lost on exit")
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.notifier = notifier

	return deps, nil
}

// newNotifier sends email through SMTP when smtp.host is set. Everything
// else goes to the log; bodies are logged outside production so reset links
// can be followed during development.
func newNotifier(cfg serverConfig, logger *slog.Logger) (goCred.Notifier, error) {
	var opts []notify.LogOption
	if !cfg.Auth.ProductionMode {
		opts = append(opts, notify.IncludeBody())
	}
	logSender := notify.NewLog(logger.With("component", "notify"), opts...)

	router := &notify.Router{Email: logSender, Mobile: logSender}
	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTP(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		router.Email = smtp
	}
	return router, nil
}

func buildEngine(cfg serverConfig, deps *backends, logger *slog.Logger) (*goCred.Engine, error) {
	auth := cfg.Auth
	switch {
	case cfg.SigningKey != "":
		auth.Session.PrivateKey = []byte(cfg.SigningKey)
	case !auth.ProductionMode:
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		auth.Session.PrivateKey = key
		logger.Warn("no signing key configured; sessions will not survive a restart")
	}

	b := goCred.New().
		WithConfig(auth).
		WithDirectory(deps.directory).
		WithNotifier(deps.notifier).
		WithLogger(logger)
	if deps.redis != nil {
		b.WithRedis(deps.redis)
	}
	if auth.Audit.Enabled {
		b.WithAuditSink(goCred.NewSlogSink(logger.With("component", "audit")))
	}
	return b.Build()
}
