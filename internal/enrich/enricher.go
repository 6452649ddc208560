// Package enrich augments candidates with market data from the DEX
// aggregator.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"listing-radar/internal/dexscreener"
	"listing-radar/internal/domain"
	"listing-radar/internal/observability"
)

// Enricher fills price/liquidity/volume/FDV fields from the aggregator.
// Failures are tolerated: a candidate proceeds downstream with whatever
// fields it has, and the filter treats missing fields as a rejection.
type Enricher struct {
	client *dexscreener.Client
	now    func() time.Time
}

// New creates an Enricher.
func New(client *dexscreener.Client) *Enricher {
	return &Enricher{
		client: client,
		now:    time.Now,
	}
}

// Enrich returns a copy of the candidate with market fields merged in.
// Lookups go by token address when the candidate has one, otherwise by
// symbol search. Non-200 responses and empty result sets leave the
// enrichment fields untouched.
func (e *Enricher) Enrich(ctx context.Context, c *domain.TokenCandidate) *domain.TokenCandidate {
	enriched := *c

	pairs, err := e.lookup(ctx, c)
	if err != nil {
		log.Warn().Err(err).Str("symbol", c.Symbol).Msg("enrichment lookup failed")
		observability.RecordEnrichmentFailure()
		return &enriched
	}

	best := BestPair(pairs, c.Symbol)
	if best == nil {
		log.Debug().Str("symbol", c.Symbol).Msg("no matching pairs for enrichment")
		observability.RecordEnrichmentFailure()
		return &enriched
	}

	enriched.PriceUSD = best.Price()
	enriched.LiquidityUSD = best.LiquidityUSD()
	enriched.Volume24hUSD = best.VolumeH24()
	enriched.FullyDilutedValue = best.FDV
	if enriched.ChainID == "" {
		enriched.ChainID = best.ChainID
	}
	if enriched.TokenAddress == "" {
		enriched.TokenAddress = best.BaseToken.Address
	}
	if enriched.DisplayName == "" {
		enriched.DisplayName = best.BaseToken.Name
	}
	if best.URL != "" {
		if enriched.Links == nil {
			enriched.Links = make(map[string]string)
		}
		enriched.Links["dexscreener"] = best.URL
	}
	e.mergeProfileLinks(ctx, &enriched)
	enriched.FetchedAt = e.now()

	return &enriched
}

func (e *Enricher) lookup(ctx context.Context, c *domain.TokenCandidate) ([]dexscreener.Pair, error) {
	if c.TokenAddress != "" && c.ChainID != "" {
		return e.client.TokenPairs(ctx, c.ChainID, c.TokenAddress)
	}
	return e.client.Search(ctx, c.Symbol)
}

// mergeProfileLinks adds social/web links from the token profile when an
// address is known. Best effort only.
func (e *Enricher) mergeProfileLinks(ctx context.Context, c *domain.TokenCandidate) {
	if c.TokenAddress == "" {
		return
	}

	links, err := e.client.TokenProfileLinks(ctx, c.TokenAddress)
	if err != nil {
		log.Debug().Err(err).Str("token_address", c.TokenAddress).Msg("token profile unavailable")
		return
	}
	for k, v := range links {
		if c.Links == nil {
			c.Links = make(map[string]string)
		}
		if _, exists := c.Links[k]; !exists {
			c.Links[k] = v
		}
	}
}

// BestPair picks the pair to merge when the aggregator returns several
// for one symbol: highest liquidity wins, ties broken by higher 24h
// volume. Pairs whose base symbol does not match are skipped.
func BestPair(pairs []dexscreener.Pair, symbol string) *dexscreener.Pair {
	var best *dexscreener.Pair
	for i := range pairs {
		p := &pairs[i]
		if !symbolMatches(p.BaseToken.Symbol, symbol) {
			continue
		}
		if best == nil || better(p, best) {
			best = p
		}
	}
	return best
}

// symbolMatches accepts an exact base-symbol match or a candidate symbol
// that embeds the base symbol as its prefix (exchange pair symbols like
// FOOUSDT against a base token FOO).
func symbolMatches(base, symbol string) bool {
	base = strings.ToUpper(strings.TrimSpace(base))
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if base == "" || symbol == "" {
		return false
	}
	if base == symbol {
		return true
	}
	return len(base) >= 2 && strings.HasPrefix(symbol, base)
}

func better(a, b *dexscreener.Pair) bool {
	al, bl := floatOrZero(a.LiquidityUSD()), floatOrZero(b.LiquidityUSD())
	if al != bl {
		return al > bl
	}
	return floatOrZero(a.VolumeH24()) > floatOrZero(b.VolumeH24())
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
