// Package ledger implements the deduplication gate: the decision of
// whether a natural key is new or already known, backed by the durable
// ledger store's unique constraint.
package ledger

import (
	"context"
	"errors"
	"time"

	"listing-radar/internal/storage"
)

// Ledger gates candidates by natural key. Atomicity with respect to
// concurrent callers comes from the store, not from this package: the
// reservation is an insert attempt, and a constraint conflict means
// "already-known".
type Ledger struct {
	store storage.LedgerStore
	// reclaimAfter is how long an unconfirmed reservation shadows its
	// key before a later observation may take it over. Zero disables
	// reclaiming.
	reclaimAfter time.Duration
	now          func() time.Time
}

// New creates a Ledger over the given store.
func New(store storage.LedgerStore, reclaimAfter time.Duration) *Ledger {
	return &Ledger{
		store:        store,
		reclaimAfter: reclaimAfter,
		now:          time.Now,
	}
}

// Reserve attempts to reserve a natural key. Returns true exactly once
// per key across concurrent callers and process restarts; every other
// call returns false. A reservation that was never confirmed becomes
// reservable again after the reclaim window, so a crash between reserve
// and persist cannot permanently shadow a listing.
func (l *Ledger) Reserve(ctx context.Context, key string, firstSeen time.Time) (bool, error) {
	err := l.store.Insert(ctx, key, firstSeen, l.now())
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return false, err
	}

	if l.reclaimAfter <= 0 {
		return false, nil
	}
	return l.store.Reclaim(ctx, key, l.now().Add(-l.reclaimAfter), l.now())
}

// Confirm marks a reserved key as fully processed. Called only after the
// candidate has been durably persisted.
func (l *Ledger) Confirm(ctx context.Context, key string) error {
	return l.store.Confirm(ctx, key, l.now())
}
