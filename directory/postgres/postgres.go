// Package postgres is a goCred.UserDirectory backed by PostgreSQL through
// a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

const uniqueViolation = "23505"

// Schema is the DDL applied by EnsureSchema. Email and mobile are stored
// normalized, so plain unique indexes enforce one subject per channel.
const Schema = `
CREATE TABLE IF NOT EXISTS gocred_subjects (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT UNIQUE,
	mobile        TEXT UNIQUE,
	kind          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

// Directory implements goCred.UserDirectory and goCred.SubjectRegistrar.
type Directory struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New returns a Directory on pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool, now: time.Now}
}

// EnsureSchema creates the subjects table if it does not exist.
func (d *Directory) EnsureSchema(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, Schema); err != nil {
		return oops.In("directory").Code("SCHEMA_FAILED").Wrap(err)
	}
	return nil
}

// FindByIdentifier looks a subject up by normalized email or mobile.
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (goCred.DirectoryRecord, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(mobile, ''), kind, created_at, password_hash
		FROM gocred_subjects
		WHERE email = $1 OR mobile = $1
		LIMIT 1
	`, identifier)

	var rec goCred.DirectoryRecord
	err := row.Scan(
		&rec.Subject.ID,
		&rec.Subject.Name,
		&rec.Subject.Email,
		&rec.Subject.Mobile,
		&rec.Subject.Kind,
		&rec.Subject.CreatedAt,
		&rec.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return goCred.DirectoryRecord{}, oops.In("directory").Code("SUBJECT_NOT_FOUND").Wrap(goCred.ErrSubjectNotFound)
	}
	if err != nil {
		return goCred.DirectoryRecord{}, oops.In("directory").
			Code("SUBJECT_LOOKUP_FAILED").
			With("operation", "find by identifier").
			Wrap(err)
	}
	return rec, nil
}

// FindByID returns the subject profile for id.
func (d *Directory) FindByID(ctx context.Context, id string) (goCred.Subject, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(mobile, ''), kind, created_at
		FROM gocred_subjects
		WHERE id = $1
	`, id)

	var s goCred.Subject
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Mobile, &s.Kind, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return goCred.Subject{}, oops.In("directory").
			Code("SUBJECT_NOT_FOUND").
			With("id", id).
			Wrap(goCred.ErrSubjectNotFound)
	}
	if err != nil {
		return goCred.Subject{}, oops.In("directory").
			Code("SUBJECT_LOOKUP_FAILED").
			With("operation", "find by id").
			With("id", id).
			Wrap(err)
	}
	return s, nil
}

// UpdatePasswordHash replaces the stored hash for id.
func (d *Directory) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	result, err := d.pool.Exec(ctx, `
		UPDATE gocred_subjects SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, hash, d.now().UTC())
	if err != nil {
		return oops.In("directory").
			Code("PASSWORD_UPDATE_FAILED").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.In("directory").
			Code("SUBJECT_NOT_FOUND").
			With("id", id).
			Wrap(goCred.ErrSubjectNotFound)
	}
	return nil
}

// CreateSubject inserts a subject with a fresh ULID. A unique violation on
// email or mobile is reported as goCred.ErrIdentifierTaken.
func (d *Directory) CreateSubject(ctx context.Context, in goCred.NewSubject) (goCred.Subject, error) {
	now := d.now().UTC()
	s := goCred.Subject{
		ID:        ulid.Make().String(),
		Name:      in.Name,
		Email:     in.Email,
		Mobile:    in.Mobile,
		Kind:      in.Kind,
		CreatedAt: now,
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO gocred_subjects (id, name, email, mobile, kind, password_hash, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $7)
	`, s.ID, s.Name, s.Email, s.Mobile, s.Kind, in.PasswordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return goCred.Subject{}, oops.In("directory").
				Code("IDENTIFIER_TAKEN").
				With("constraint", pgErr.ConstraintName).
				Wrap(goCred.ErrIdentifierTaken)
		}
		return goCred.Subject{}, oops.In("directory").
			Code("SUBJECT_CREATE_FAILED").
			With("operation", "insert subject").
			Wrap(err)
	}
	return s, nil
}

var (
	_ goCred.UserDirectory    = (*Directory)(nil)
	_ goCred.SubjectRegistrar = (*Directory)(nil)
)
