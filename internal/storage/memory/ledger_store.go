package memory

import (
	"context"
	"sync"
	"time"

	"listing-radar/internal/domain"
	"listing-radar/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu   sync.Mutex
	data map[string]*domain.LedgerEntry
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		data: make(map[string]*domain.LedgerEntry),
	}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// Insert reserves a natural key. Returns ErrDuplicateKey if it exists.
func (s *LedgerStore) Insert(_ context.Context, key string, firstSeen, reservedAt time.Time) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = &domain.LedgerEntry{
		NaturalKey:  key,
		FirstSeenAt: firstSeen,
		ReservedAt:  reservedAt,
	}
	return nil
}

// Reclaim re-reserves an unconfirmed key whose reservation is older than
// staleBefore.
func (s *LedgerStore) Reclaim(_ context.Context, key string, staleBefore, reservedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[key]
	if !exists || entry.Confirmed || !entry.ReservedAt.Before(staleBefore) {
		return false, nil
	}

	entry.ReservedAt = reservedAt
	return true, nil
}

// Confirm marks a reserved key as successfully persisted.
func (s *LedgerStore) Confirm(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[key]
	if !exists {
		return storage.ErrNotFound
	}

	entry.Confirmed = true
	confirmedAt := at
	entry.ConfirmedAt = &confirmedAt
	return nil
}

// Get retrieves a ledger entry by natural key.
func (s *LedgerStore) Get(_ context.Context, key string) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	entryCopy := *entry
	if entry.ConfirmedAt != nil {
		t := *entry.ConfirmedAt
		entryCopy.ConfirmedAt = &t
	}
	return &entryCopy, nil
}
