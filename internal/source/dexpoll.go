package source

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"listing-radar/internal/dexscreener"
	"listing-radar/internal/domain"
	"listing-radar/internal/observability"
)

// DexPollConfig configures the DEX aggregator polling adapter.
type DexPollConfig struct {
	Interval time.Duration
	// RecentWindow keeps only pairs created within this trailing window
	// of the poll time. Pairs without a creation timestamp are skipped.
	RecentWindow time.Duration
}

// DexPollSource polls the aggregator's recent-pairs endpoint and emits
// one event per fresh pair. A token listed on several DEXes appears in
// multiple pairs; the per-cycle address set collapses those, and the
// ledger handles recurrence across cycles.
type DexPollSource struct {
	cfg    DexPollConfig
	client *dexscreener.Client
	now    func() time.Time
}

// NewDexPollSource creates a DEX polling adapter.
func NewDexPollSource(client *dexscreener.Client, cfg DexPollConfig) *DexPollSource {
	return &DexPollSource{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
}

// Compile-time interface check.
var _ Source = (*DexPollSource)(nil)

// Name implements Source.
func (s *DexPollSource) Name() string { return domain.SourceDexPoll.String() }

// Subscribe implements Source.
func (s *DexPollSource) Subscribe(ctx context.Context) (<-chan domain.RawListingEvent, error) {
	ch := make(chan domain.RawListingEvent, eventBuffer)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.pollOnce(ctx, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollOnce(ctx, ch)
			}
		}
	}()
	return ch, nil
}

// pollOnce fetches recent pairs and emits those inside the trailing
// window. An API failure skips the cycle.
func (s *DexPollSource) pollOnce(ctx context.Context, ch chan<- domain.RawListingEvent) {
	pairs, err := s.client.RecentPairs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("recent pairs fetch failed")
		observability.RecordSourceError(s.Name())
		return
	}

	cutoff := s.now().UTC().Add(-s.cfg.RecentWindow)
	seen := make(map[string]struct{}, len(pairs))
	emitted := 0

	for i := range pairs {
		pair := &pairs[i]

		createdAt := pair.CreatedAt()
		if createdAt.IsZero() || createdAt.Before(cutoff) {
			continue
		}

		addr := strings.ToLower(pair.BaseToken.Address)
		if addr == "" {
			observability.RecordEventDropped(s.Name(), "parse")
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		created := createdAt
		ev := domain.RawListingEvent{
			Source:        domain.SourceDexPoll,
			ObservedAt:    s.now().UTC(),
			Symbol:        pair.BaseToken.Symbol,
			Name:          pair.BaseToken.Name,
			ChainID:       pair.ChainID,
			TokenAddress:  pair.BaseToken.Address,
			PairCreatedAt: &created,
		}

		select {
		case ch <- ev:
			emitted++
		case <-ctx.Done():
			return
		}
	}

	log.Debug().Int("pairs", len(pairs)).Int("emitted", emitted).Msg("dex poll cycle complete")
}
