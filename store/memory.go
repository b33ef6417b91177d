package store

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

type entry struct {
	value     []byte
	expiresAt time.Time
}

type shard struct {
	mu    sync.Mutex
	items map[string]entry
}

// Memory is an in-process Store. Keys are spread across 32 lock shards
// chosen by xxhash, so operations on different keys rarely contend.
// State is lost on restart.
type Memory struct {
	shards [shardCount]*shard
	now    func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSweepInterval starts a background goroutine that drops expired keys
// every interval. Close stops it.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(m *Memory) {
		if interval <= 0 {
			return
		}
		m.stop = make(chan struct{})
		m.done = make(chan struct{})
		go m.sweepLoop(interval)
	}
}

// NewMemory returns an empty Memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{items: make(map[string]entry)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	return m.shards[xxhash.Sum64String(key)%shardCount]
}

// lookup returns the live entry for key, dropping it if expired. Caller holds s.mu.
func (m *Memory) lookup(s *shard, key string, now time.Time) (entry, bool) {
	e, ok := s.items[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		delete(s.items, key)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := m.lookup(s, key, m.now())
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(e.value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = entry{value: bytes.Clone(value), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	if _, ok := m.lookup(s, key, now); ok {
		return false, nil
	}
	s.items[key] = entry{value: bytes.Clone(value), expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *Memory) CompareAndSwap(ctx context.Context, key string, old, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	e, ok := m.lookup(s, key, now)
	if !ok || !bytes.Equal(e.value, old) {
		return false, nil
	}
	expiresAt := e.expiresAt
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	s.items[key] = entry{value: bytes.Clone(value), expiresAt: expiresAt}
	return true, nil
}

func (m *Memory) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := m.lookup(s, key, m.now())
	if !ok || !bytes.Equal(e.value, old) {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (m *Memory) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	var count int64
	e, ok := m.lookup(s, key, now)
	if ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, err
		}
		count = parsed
	} else {
		e.expiresAt = now.Add(window)
	}
	count++
	s.items[key] = entry{value: []byte(strconv.FormatInt(count, 10)), expiresAt: e.expiresAt}
	return count, nil
}

// Len reports the number of live keys. Expired keys not yet swept are excluded.
func (m *Memory) Len() int {
	now := m.now()
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for _, e := range s.items {
			if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Sweep drops every expired key.
func (m *Memory) Sweep() {
	now := m.now()
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
				delete(s.items, k)
			}
		}
		s.mu.Unlock()
	}
}

func (m *Memory) sweepLoop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close stops the sweeper, if one was started. The store stays usable.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() {
		if m.stop != nil {
			close(m.stop)
			<-m.done
		}
	})
	return nil
}
