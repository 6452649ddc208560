// Package storage defines store interfaces shared by the PostgreSQL and
// in-memory implementations.
package storage

import (
	"context"
	"time"

	"listing-radar/internal/domain"
)

// LedgerStore is the durable record of which natural keys have already
// been reserved by the dedup gate. The at-most-once guarantee is
// delegated to the store's unique-constraint semantics, never to
// in-process locks: there may be more than one process instance.
type LedgerStore interface {
	// Insert reserves a natural key. Returns ErrDuplicateKey if the key
	// is already present.
	Insert(ctx context.Context, key string, firstSeen, reservedAt time.Time) error

	// Reclaim re-reserves a key whose previous reservation was never
	// confirmed and is older than staleBefore. Returns true if the
	// caller now owns the reservation.
	Reclaim(ctx context.Context, key string, staleBefore, reservedAt time.Time) (bool, error)

	// Confirm marks a reserved key as successfully persisted.
	Confirm(ctx context.Context, key string, at time.Time) error

	// Get retrieves a ledger entry. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (*domain.LedgerEntry, error)
}

// CandidateStore persists accepted token candidates. Writes are
// idempotent: upserting the same natural key twice yields one row, with
// the second write merging only enrichment fields.
type CandidateStore interface {
	Upsert(ctx context.Context, c *domain.TokenCandidate) error

	// Recent returns the most recently created candidates, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.TokenCandidate, error)

	// BySource returns all candidates from one source, newest first.
	BySource(ctx context.Context, source domain.Source) ([]*domain.TokenCandidate, error)

	// GetByKey retrieves a candidate by natural key. Returns ErrNotFound
	// if absent.
	GetByKey(ctx context.Context, key string) (*domain.TokenCandidate, error)
}
