package postgres

import (
	"context"
	"fmt"
	"time"

	"listing-radar/internal/domain"
	"listing-radar/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
// The dedup invariant rests on the listing_ledger primary key: a
// conflicting insert is rejected by the constraint, never silently
// duplicated, even across process instances.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// Insert reserves a natural key. Returns ErrDuplicateKey if the key is
// already present.
func (s *LedgerStore) Insert(ctx context.Context, key string, firstSeen, reservedAt time.Time) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO listing_ledger (natural_key, first_seen_at, reserved_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, key, firstSeen, reservedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Reclaim re-reserves an unconfirmed key whose reservation is older than
// staleBefore. The conditional UPDATE is atomic: concurrent reclaimers
// racing on the same key see exactly one row affected.
func (s *LedgerStore) Reclaim(ctx context.Context, key string, staleBefore, reservedAt time.Time) (bool, error) {
	query := `
		UPDATE listing_ledger
		SET reserved_at = $3
		WHERE natural_key = $1 AND confirmed = FALSE AND reserved_at < $2
	`

	tag, err := s.pool.Exec(ctx, query, key, staleBefore, reservedAt)
	if err != nil {
		return false, fmt.Errorf("reclaim ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm marks a reserved key as successfully persisted.
func (s *LedgerStore) Confirm(ctx context.Context, key string, at time.Time) error {
	query := `
		UPDATE listing_ledger
		SET confirmed = TRUE, confirmed_at = $2
		WHERE natural_key = $1
	`

	tag, err := s.pool.Exec(ctx, query, key, at)
	if err != nil {
		return fmt.Errorf("confirm ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves a ledger entry by natural key.
func (s *LedgerStore) Get(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	query := `
		SELECT natural_key, first_seen_at, reserved_at, confirmed, confirmed_at
		FROM listing_ledger
		WHERE natural_key = $1
	`

	var e domain.LedgerEntry
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&e.NaturalKey,
		&e.FirstSeenAt,
		&e.ReservedAt,
		&e.Confirmed,
		&e.ConfirmedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}
