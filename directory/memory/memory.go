// Package memory is an in-process goCred.UserDirectory for tests, demos and
// single-node tools. Records are lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/google/uuid"
)

// Directory keeps subjects in maps guarded by a RWMutex. It implements
// goCred.UserDirectory and goCred.SubjectRegistrar.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]goCred.DirectoryRecord
	byIdent map[string]string
	now     func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock sets the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// New returns an empty Directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		byID:    make(map[string]goCred.DirectoryRecord),
		byIdent: make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Put stores rec as is, replacing any subject with the same ID. Email and
// mobile must already be normalized. It is meant for seeding.
func (d *Directory) Put(rec goCred.DirectoryRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byID[rec.Subject.ID]; ok {
		d.unindex(old.Subject)
	}
	d.byID[rec.Subject.ID] = rec
	d.index(rec.Subject)
}

// FindByIdentifier looks up a subject by normalized email or mobile.
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (goCred.DirectoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return goCred.DirectoryRecord{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byIdent[identifier]
	if !ok {
		return goCred.DirectoryRecord{}, goCred.ErrSubjectNotFound
	}
	rec, ok := d.byID[id]
	if !ok {
		return goCred.DirectoryRecord{}, goCred.ErrSubjectNotFound
	}
	return rec, nil
}

// FindByID returns the subject profile for id.
func (d *Directory) FindByID(ctx context.Context, id string) (goCred.Subject, error) {
	if err := ctx.Err(); err != nil {
		return goCred.Subject{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byID[id]
	if !ok {
		return goCred.Subject{}, goCred.ErrSubjectNotFound
	}
	return rec.Subject, nil
}

// UpdatePasswordHash replaces the stored hash for id.
func (d *Directory) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.byID[id]
	if !ok {
		return goCred.ErrSubjectNotFound
	}
	rec.PasswordHash = hash
	d.byID[id] = rec
	return nil
}

// CreateSubject assigns a UUID and stores the subject. It returns
// goCred.ErrIdentifierTaken if the email or mobile is already indexed.
func (d *Directory) CreateSubject(ctx context.Context, in goCred.NewSubject) (goCred.Subject, error) {
	if err := ctx.Err(); err != nil {
		return goCred.Subject{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ident := range []string{in.Email, in.Mobile} {
		if ident == "" {
			continue
		}
		if _, exists := d.byIdent[ident]; exists {
			return goCred.Subject{}, goCred.ErrIdentifierTaken
		}
	}

	subject := goCred.Subject{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Mobile:    in.Mobile,
		Kind:      in.Kind,
		CreatedAt: d.now().UTC(),
	}
	d.byID[subject.ID] = goCred.DirectoryRecord{
		Subject:      subject,
		PasswordHash: in.PasswordHash,
	}
	d.index(subject)
	return subject, nil
}

// Len reports the number of stored subjects.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *Directory) index(s goCred.Subject) {
	if s.Email != "" {
		d.byIdent[s.Email] = s.ID
	}
	if s.Mobile != "" {
		d.byIdent[s.Mobile] = s.ID
	}
}

func (d *Directory) unindex(s goCred.Subject) {
	if s.Email != "" && d.byIdent[s.Email] == s.ID {
		delete(d.byIdent, s.Email)
	}
	if s.Mobile != "" && d.byIdent[s.Mobile] == s.ID {
		delete(d.byIdent, s.Mobile)
	}
}

var (
	_ goCred.UserDirectory    = (*Directory)(nil)
	_ goCred.SubjectRegistrar = (*Directory)(nil)
)
