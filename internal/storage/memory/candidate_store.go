package memory

import (
	"context"
	"sort"
	"sync"

	"listing-radar/internal/domain"
	"listing-radar/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenCandidate // keyed by natural key
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.TokenCandidate),
	}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

// Upsert stores a candidate. A second write with the same natural key
// merges only enrichment fields into the existing row.
func (s *CandidateStore) Upsert(_ context.Context, c *domain.TokenCandidate) error {
	if c == nil || c.Symbol == "" || !c.Source.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.NaturalKey()
	existing, exists := s.data[key]
	if !exists {
		candidateCopy := cloneCandidate(c)
		s.data[key] = candidateCopy
		return nil
	}

	if c.PriceUSD != nil {
		existing.PriceUSD = cloneFloat(c.PriceUSD)
	}
	if c.LiquidityUSD != nil {
		existing.LiquidityUSD = cloneFloat(c.LiquidityUSD)
	}
	if c.Volume24hUSD != nil {
		existing.Volume24hUSD = cloneFloat(c.Volume24hUSD)
	}
	if c.FullyDilutedValue != nil {
		existing.FullyDilutedValue = cloneFloat(c.FullyDilutedValue)
	}
	for k, v := range c.Links {
		if existing.Links == nil {
			existing.Links = make(map[string]string)
		}
		existing.Links[k] = v
	}
	existing.FetchedAt = c.FetchedAt
	return nil
}

// Recent returns the most recently created candidates, newest first.
func (s *CandidateStore) Recent(_ context.Context, limit int) ([]*domain.TokenCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenCandidate, 0, len(s.data))
	for _, c := range s.data {
		result = append(result, cloneCandidate(c))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// BySource returns all candidates from one source, newest first.
func (s *CandidateStore) BySource(_ context.Context, source domain.Source) ([]*domain.TokenCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenCandidate
	for _, c := range s.data {
		if c.Source == source {
			result = append(result, cloneCandidate(c))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// GetByKey retrieves a candidate by natural key.
func (s *CandidateStore) GetByKey(_ context.Context, key string) (*domain.TokenCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneCandidate(c), nil
}

// cloneCandidate copies a candidate to prevent external mutation.
func cloneCandidate(c *domain.TokenCandidate) *domain.TokenCandidate {
	candidateCopy := *c
	candidateCopy.PriceUSD = cloneFloat(c.PriceUSD)
	candidateCopy.LiquidityUSD = cloneFloat(c.LiquidityUSD)
	candidateCopy.Volume24hUSD = cloneFloat(c.Volume24hUSD)
	candidateCopy.FullyDilutedValue = cloneFloat(c.FullyDilutedValue)
	if c.Links != nil {
		candidateCopy.Links = make(map[string]string, len(c.Links))
		for k, v := range c.Links {
			candidateCopy.Links[k] = v
		}
	}
	return &candidateCopy
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
