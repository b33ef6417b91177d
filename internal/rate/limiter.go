package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goCred/store"
)

// Config holds rate limiter tuning parameters. A zero max disables the
// corresponding counter.
type Config struct {
	EnableIPThrottle bool

	MaxSignInFailures int
	SignInWindow      time.Duration

	MaxOTPIssues int
	OTPWindow    time.Duration

	MaxResetRequests int
	ResetWindow      time.Duration
}

// Limiter enforces fixed-window budgets for sign-in failures, OTP issue and
// reset requests on top of store.Store counters.
type Limiter struct {
	store  store.Store
	config Config
}

// New creates a rate [Limiter] backed by s.
func New(s store.Store, cfg Config) *Limiter {
	return &Limiter{
		store:  s,
		config: cfg,
	}
}

// CheckSignIn reports ErrRateLimited when the identifier or IP has used up
// its failure budget. It does not consume budget.
func (l *Limiter) CheckSignIn(ctx context.Context, identifier, ip string) error {
	if l.config.MaxSignInFailures <= 0 {
		return nil
	}
	if err := l.checkCounter(ctx, signInKey(identifier), l.config.MaxSignInFailures); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, signInIPKey(ip), l.config.MaxSignInFailures); err != nil {
			return err
		}
	}
	return nil
}

// RecordSignInFailure counts one failed sign-in for the identifier and IP.
func (l *Limiter) RecordSignInFailure(ctx context.Context, identifier, ip string) error {
	if l.config.MaxSignInFailures <= 0 {
		return nil
	}
	if _, err := l.incr(ctx, signInKey(identifier), l.config.SignInWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incr(ctx, signInIPKey(ip), l.config.SignInWindow); err != nil {
			return err
		}
	}
	return nil
}

// ResetSignIn clears the per-identifier failure counter after a successful
// sign-in. The IP counter is left alone.
func (l *Limiter) ResetSignIn(ctx context.Context, identifier string) error {
	if l.config.MaxSignInFailures <= 0 {
		return nil
	}
	if err := l.store.Delete(ctx, signInKey(identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// CheckOTPIssue consumes one unit of the channel's OTP issue budget.
func (l *Limiter) CheckOTPIssue(ctx context.Context, channel string) error {
	return l.enforce(ctx, otpKey(channel), l.config.MaxOTPIssues, l.config.OTPWindow)
}

// CheckResetRequest consumes one unit of the reset budget for the channel
// and, when enabled, the IP.
func (l *Limiter) CheckResetRequest(ctx context.Context, channel, ip string) error {
	if err := l.enforce(ctx, resetKey(channel), l.config.MaxResetRequests, l.config.ResetWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.enforce(ctx, resetIPKey(ip), l.config.MaxResetRequests, l.config.ResetWindow)
	}
	return nil
}

func (l *Limiter) enforce(ctx context.Context, key string, max int, window time.Duration) error {
	if max <= 0 {
		return nil
	}
	count, err := l.incr(ctx, key, window)
	if err != nil {
		return err
	}
	if count > int64(max) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, max int) error {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil
	}
	if count >= int64(max) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.store.Incr(ctx, key, window)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func signInKey(identifier string) string { return "rl:signin:" + identifier }
func signInIPKey(ip string) string       { return "rl:signin-ip:" + ip }
func otpKey(channel string) string       { return "rl:otp:" + channel }
func resetKey(channel string) string     { return "rl:reset:" + channel }
func resetIPKey(ip string) string        { return "rl:reset-ip:" + ip }
