package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps backend failures (network, protocol, closed client).
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is the ephemeral key/value surface shared by the challenge store,
// the redemption ledger and the rate limiter. Every single-use transition
// goes through SetIfAbsent, CompareAndSwap or CompareAndDelete, so two
// racing callers never both observe success for the same key.
//
// A ttl of zero or less passed to CompareAndSwap keeps the key's current
// expiry. Set and SetIfAbsent require a positive ttl.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	CompareAndSwap(ctx context.Context, key string, old, value []byte, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	// Incr bumps a fixed-window counter. The window starts at the first
	// increment and the counter resets when it lapses.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Close() error
}
