package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/directory/memory"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/MrEthical07/goCred/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
}

// NewLoadtestCmd creates the loadtest subcommand.
func NewLoadtestCmd() *cobra.Command {
	opts := loadtestOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure session validation and OTP throughput",
		Long: `loadtest seeds session tokens, then runs a validate phase and an OTP
issue+verify phase against a Redis-backed engine and prints latency
percentiles. Without --redis-addr or REDIS_ADDR an embedded miniredis is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return fmt.Errorf("sessions, concurrency, and ops must be > 0")
			}
			if opts.redisAddr == "" {
				opts.redisAddr = os.Getenv("REDIS_ADDR")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.sessions, "sessions", 10000, "number of session tokens to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 50000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	addr := opts.redisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	defer client.Close()

	engine, err := newLoadtestEngine(client)
	if err != nil {
		return err
	}
	defer engine.Close()

	tokens := make([]string, opts.sessions)
	fmt.Fprintf(out, "seeding %d sessions...\n", opts.sessions)
	startSeed := time.Now()
	for i := range tokens {
		issued, err := engine.IssueSession(ctx, fmt.Sprintf("u-%d", i))
		if err != nil {
			return fmt.Errorf("issue session: %w", err)
		}
		tokens[i] = issued.Token
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(opts.ops, opts.concurrency, func(r *rand.Rand, _ int) error {
		_, err := engine.ValidateSession(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	otpStats := runPhase(opts.ops, opts.concurrency, func(_ *rand.Rand, i int) error {
		ch := fmt.Sprintf("load-%d@example.com", i)
		issue, err := engine.IssueOtp(ctx, ch)
		if err != nil {
			return err
		}
		_, err = engine.VerifyOtp(ctx, ch, issue.Code)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate", validateStats)
	printStats(out, "otp", otpStats)
	return nil
}

// newLoadtestEngine builds an engine with budgets off and codes exposed so
// the OTP phase can verify what it issued.
func newLoadtestEngine(client redis.UniversalClient) (*goCred.Engine, error) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i*7 + 3)
	}

	cfg := goCred.DefaultConfig()
	cfg.Session.PrivateKey = key
	cfg.Session.TTL = time.Hour
	cfg.OTP.ExposeCode = true
	cfg.Security.MaxSignInFailures = 0
	cfg.Security.MaxOTPIssues = 0
	cfg.Security.MaxResetRequests = 0

	return goCred.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(memory.New()).
		WithNotifier(notify.NewLog(logging.Discard())).
		Build()
}

// runPhase runs ops calls of fn across concurrency workers. fn receives a
// per-worker random source and the global operation index.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	stats := phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
	if total > 0 {
		stats.opsPerS = float64(len(samples)) / total.Seconds()
	}
	return stats
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
