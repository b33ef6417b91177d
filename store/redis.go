package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis deployment. Compare operations run as
// WATCH/MULTI transactions; a concurrent write to the watched key aborts the
// transaction and the operation reports false, leaving the retry decision to
// the caller.
type Redis struct {
	client    redis.UniversalClient
	prefix    string
	ownClient bool
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithPrefix namespaces every key as prefix + ":" + key.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithOwnedClient makes Close also close the underlying client.
func WithOwnedClient() RedisOption {
	return func(r *Redis) {
		r.ownClient = true
	}
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: "gocred"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (r *Redis) CompareAndSwap(ctx context.Context, key string, old, value []byte, ttl time.Duration) (bool, error) {
	full := r.key(key)
	if ttl <= 0 {
		ttl = redis.KeepTTL
	}

	swapped := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		if err != nil {
			return err
		}
		if !bytes.Equal(current, old) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, value, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, full)

	return r.compareResult(swapped, err)
}

func (r *Redis) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	full := r.key(key)

	deleted := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		if err != nil {
			return err
		}
		if !bytes.Equal(current, old) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, full)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}, full)

	return r.compareResult(deleted, err)
}

func (r *Redis) compareResult(done bool, err error) (bool, error) {
	switch {
	case err == nil:
		return done, nil
	case errors.Is(err, redis.Nil), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, unavailable(err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := r.key(key)
	count, err := r.client.Incr(ctx, full).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := r.client.Expire(ctx, full, window).Err(); err != nil {
			return 0, unavailable(err)
		}
	}

	return count, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.ownClient {
		return r.client.Close()
	}
	return nil
}
