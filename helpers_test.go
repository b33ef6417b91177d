package goCred

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goCred/notify"
	"github.com/MrEthical07/goCred/password"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testDirectory is an in-package UserDirectory; directory/memory imports
// this package and cannot be used here.
type testDirectory struct {
	mu      sync.Mutex
	byID    map[string]DirectoryRecord
	byIdent map[string]string
	nextID  int
	failErr error
}

func newTestDirectory() *testDirectory {
	return &testDirectory{
		byID:    map[string]DirectoryRecord{},
		byIdent: map[string]string{},
	}
}

func (d *testDirectory) add(t *testing.T, s Subject, plain string) Subject {
	t.Helper()

	hasher := newTestHasher(t)
	hash, err := hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[s.ID] = DirectoryRecord{Subject: s, PasswordHash: hash}
	if s.Email != "" {
		d.byIdent[s.Email] = s.ID
	}
	if s.Mobile != "" {
		d.byIdent[s.Mobile] = s.ID
	}
	return s
}

func (d *testDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.byID[id]
	delete(d.byID, id)
	delete(d.byIdent, rec.Subject.Email)
	delete(d.byIdent, rec.Subject.Mobile)
}

func (d *testDirectory) hash(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[id].PasswordHash
}

func (d *testDirectory) FindByIdentifier(_ context.Context, identifier string) (DirectoryRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return DirectoryRecord{}, d.failErr
	}
	id, ok := d.byIdent[identifier]
	if !ok {
		return DirectoryRecord{}, ErrSubjectNotFound
	}
	return d.byID[id], nil
}

func (d *testDirectory) FindByID(_ context.Context, id string) (Subject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return Subject{}, d.failErr
	}
	rec, ok := d.byID[id]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}
	return rec.Subject, nil
}

func (d *testDirectory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[id]
	if !ok {
		return ErrSubjectNotFound
	}
	rec.PasswordHash = hash
	d.byID[id] = rec
	return nil
}

func (d *testDirectory) CreateSubject(_ context.Context, in NewSubject) (Subject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byIdent[in.Email]; ok {
		return Subject{}, ErrIdentifierTaken
	}
	if _, ok := d.byIdent[in.Mobile]; ok {
		return Subject{}, ErrIdentifierTaken
	}
	d.nextID++
	s := Subject{
		ID:     "sub-" + strings.Repeat("x", d.nextID),
		Name:   in.Name,
		Email:  in.Email,
		Mobile: in.Mobile,
		Kind:   in.Kind,
	}
	d.byID[s.ID] = DirectoryRecord{Subject: s, PasswordHash: in.PasswordHash}
	d.byIdent[in.Email] = s.ID
	d.byIdent[in.Mobile] = s.ID
	return s, nil
}

// lookupOnlyDirectory hides CreateSubject.
type lookupOnlyDirectory struct {
	UserDirectory
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.PrivateKey = testSigningKey
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	cfg.OTP.ExposeCode = true
	cfg.Delivery.ResetLinkBaseURL = "http://localhost:8081"
	cfg.PasswordReset.ResponseFloor = 0
	return cfg
}

func newTestHasher(t testing.TB) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

type testEngine struct {
	*Engine
	clock *fakeClock
	dir   *testDirectory
	inbox *notify.Recorder
}

type engineOption func(*Builder)

func newTestEngine(t *testing.T, cfg Config, opts ...engineOption) *testEngine {
	t.Helper()

	clock := newFakeClock()
	dir := newTestDirectory()
	inbox := notify.NewRecorder()

	b := New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithNotifier(inbox).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{
		Engine: engine,
		clock:  clock,
		dir:    dir,
		inbox:  inbox,
	}
}

func (te *testEngine) addAlice(t *testing.T) Subject {
	t.Helper()
	return te.dir.add(t, Subject{
		ID:     "u-alice",
		Name:   "Alice",
		Email:  "a@b.com",
		Mobile: "+919876543210",
		Kind:   "customer",
	}, "secret1")
}
