package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/internal"
	"github.com/MrEthical07/goCred/store"
)

var (
	// ErrAlreadyClaimed is returned by Claim when the token has a pending or
	// redeemed entry.
	ErrAlreadyClaimed = errors.New("redemption already claimed")

	statePending  = []byte("pending")
	stateRedeemed = []byte("redeemed")
)

// RedemptionState describes a ledger entry.
type RedemptionState int

const (
	RedemptionUnused RedemptionState = iota
	RedemptionPending
	RedemptionRedeemed
)

// RedemptionLedger records single-use tokens by sha256 digest. A token is
// claimed before any other work so that concurrent redeemers race on one
// set-if-absent; the loser never reaches the password update.
type RedemptionLedger struct {
	store  store.Store
	prefix string
	ttl    time.Duration
}

// NewRedemptionLedger returns a ledger that keeps entries for ttl. ttl
// should outlive the token's own expiry so a redeemed token is rejected by
// the ledger for as long as its signature still verifies.
func NewRedemptionLedger(s store.Store, prefix string, ttl time.Duration) *RedemptionLedger {
	if prefix == "" {
		prefix = "redeemed"
	}
	return &RedemptionLedger{store: s, prefix: prefix, ttl: ttl}
}

func (l *RedemptionLedger) key(token string) string {
	return l.prefix + ":" + internal.SecretKey(token)
}

// Claim reserves token. It returns ErrAlreadyClaimed if another caller holds
// or has committed the claim.
func (l *RedemptionLedger) Claim(ctx context.Context, token string) error {
	ok, err := l.store.SetIfAbsent(ctx, l.key(token), statePending, l.ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return ErrAlreadyClaimed
	}
	return nil
}

// Release drops a pending claim so the token can be tried again. A
// committed entry is left untouched.
func (l *RedemptionLedger) Release(ctx context.Context, token string) error {
	if _, err := l.store.CompareAndDelete(ctx, l.key(token), statePending); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Commit marks a claimed token as redeemed.
func (l *RedemptionLedger) Commit(ctx context.Context, token string) error {
	key := l.key(token)
	ok, err := l.store.CompareAndSwap(ctx, key, statePending, stateRedeemed, l.ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ok {
		return nil
	}

	// The pending entry lapsed between claim and commit; record the
	// redemption regardless.
	if err := l.store.Set(ctx, key, stateRedeemed, l.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// State reports the ledger entry for token.
func (l *RedemptionLedger) State(ctx context.Context, token string) (RedemptionState, error) {
	data, err := l.store.Get(ctx, l.key(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RedemptionUnused, nil
		}
		return RedemptionUnused, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	switch string(data) {
	case string(statePending):
		return RedemptionPending, nil
	case string(stateRedeemed):
		return RedemptionRedeemed, nil
	default:
		return RedemptionUnused, errors.New("invalid redemption state")
	}
}
