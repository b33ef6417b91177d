package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/store"
)

const (
	challengeRecordVersionV1 = 1
	maxCASRetries            = 4
)

var (
	// ErrStoreContention is returned when a compare-and-swap loop loses
	// every retry to concurrent writers.
	ErrStoreContention = errors.New("store contention")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ChallengeResult is the outcome of a single Verify call.
type ChallengeResult int

const (
	ChallengeNotRequested ChallengeResult = iota
	ChallengeExpired
	ChallengeVerified
	ChallengeMismatch
	ChallengeAttemptsExceeded
)

func (r ChallengeResult) String() string {
	switch r {
	case ChallengeNotRequested:
		return "not_requested"
	case ChallengeExpired:
		return "expired"
	case ChallengeVerified:
		return "verified"
	case ChallengeMismatch:
		return "mismatch"
	case ChallengeAttemptsExceeded:
		return "attempts_exceeded"
	default:
		return "unknown"
	}
}

// ChallengeRecord is the persisted form of an outstanding OTP. Only the
// sha256 of the code is kept.
type ChallengeRecord struct {
	CodeHash  [32]byte
	CreatedAt int64
	Attempts  uint16
}

// ChallengeStore keeps one outstanding challenge per channel.
type ChallengeStore struct {
	store       store.Store
	prefix      string
	ttl         time.Duration
	maxAttempts int
}

// NewChallengeStore returns a store whose challenges expire ttl after issue
// and are purged after maxAttempts mismatches.
func NewChallengeStore(s store.Store, prefix string, ttl time.Duration, maxAttempts int) *ChallengeStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &ChallengeStore{
		store:       s,
		prefix:      prefix,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func (c *ChallengeStore) key(channel string) string {
	return c.prefix + ":" + channel
}

// Save replaces any outstanding challenge for channel. The backend keeps the
// record for twice the challenge TTL so a late Verify still reports Expired
// rather than NotRequested.
func (c *ChallengeStore) Save(ctx context.Context, channel string, codeHash [32]byte, now time.Time) error {
	encoded, err := encodeChallengeRecord(&ChallengeRecord{
		CodeHash:  codeHash,
		CreatedAt: now.UnixNano(),
	})
	if err != nil {
		return err
	}

	if err := c.store.Set(ctx, c.key(channel), encoded, 2*c.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Verify checks provided against the outstanding challenge for channel.
// Every state change is a compare-and-swap or compare-and-delete against
// the bytes that were read, so of two racing correct submissions exactly
// one observes ChallengeVerified.
func (c *ChallengeStore) Verify(ctx context.Context, channel string, provided [32]byte, now time.Time) (ChallengeResult, error) {
	key := c.key(channel)

	for i := 0; i < maxCASRetries; i++ {
		data, err := c.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ChallengeNotRequested, nil
			}
			return ChallengeNotRequested, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		record, err := decodeChallengeRecord(data)
		if err != nil {
			// Unreadable records are dropped and treated as absent.
			if _, err := c.store.CompareAndDelete(ctx, key, data); err != nil {
				return ChallengeNotRequested, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			return ChallengeNotRequested, nil
		}

		var (
			result ChallengeResult
			done   bool
		)

		createdAt := time.Unix(0, record.CreatedAt)
		switch {
		case !now.Before(createdAt.Add(c.ttl)):
			result = ChallengeExpired
			done, err = c.store.CompareAndDelete(ctx, key, data)
		case subtle.ConstantTimeCompare(record.CodeHash[:], provided[:]) == 1:
			result = ChallengeVerified
			done, err = c.store.CompareAndDelete(ctx, key, data)
		default:
			record.Attempts++
			if int(record.Attempts) >= c.maxAttempts {
				result = ChallengeAttemptsExceeded
				done, err = c.store.CompareAndDelete(ctx, key, data)
				break
			}

			updated, encErr := encodeChallengeRecord(record)
			if encErr != nil {
				return ChallengeNotRequested, encErr
			}
			result = ChallengeMismatch
			done, err = c.store.CompareAndSwap(ctx, key, data, updated, 0)
		}

		if err != nil {
			return ChallengeNotRequested, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !done {
			continue
		}
		return result, nil
	}

	return ChallengeNotRequested, ErrStoreContention
}

// Get returns the outstanding record for channel, or nil when none exists.
func (c *ChallengeStore) Get(ctx context.Context, channel string) (*ChallengeRecord, error) {
	data, err := c.store.Get(ctx, c.key(channel))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return decodeChallengeRecord(data)
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &ChallengeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := reader.Read(record.CodeHash[:]); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("invalid challenge record length")
	}

	return record, nil
}
