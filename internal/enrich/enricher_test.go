package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"listing-radar/internal/dexscreener"
	"listing-radar/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func pair(symbol string, liquidity, volume float64) dexscreener.Pair {
	return dexscreener.Pair{
		ChainID:   "solana",
		URL:       "https://dexscreener.com/solana/" + symbol,
		BaseToken: dexscreener.Token{Address: "mint-" + symbol, Symbol: symbol},
		Liquidity: &dexscreener.Liquidity{USD: ptr(liquidity)},
		Volume:    &dexscreener.Volume{H24: ptr(volume)},
	}
}

func TestBestPair_HighestLiquidityWins(t *testing.T) {
	pairs := []dexscreener.Pair{
		pair("FOO", 10_000, 500),
		pair("FOO", 80_000, 100),
		pair("FOO", 40_000, 900),
	}

	best := BestPair(pairs, "FOO")
	if best == nil {
		t.Fatal("Expected a best pair")
	}
	if *best.LiquidityUSD() != 80_000 {
		t.Errorf("Expected the 80k-liquidity pair, got %v", *best.LiquidityUSD())
	}
}

func TestBestPair_TieBrokenByVolume(t *testing.T) {
	pairs := []dexscreener.Pair{
		pair("FOO", 50_000, 100),
		pair("FOO", 50_000, 900),
	}

	best := BestPair(pairs, "FOO")
	if best == nil {
		t.Fatal("Expected a best pair")
	}
	if *best.VolumeH24() != 900 {
		t.Errorf("Expected the higher-volume pair, got %v", *best.VolumeH24())
	}
}

func TestBestPair_SkipsOtherSymbols(t *testing.T) {
	pairs := []dexscreener.Pair{
		pair("BAR", 900_000, 900),
		pair("FOO", 10_000, 100),
	}

	best := BestPair(pairs, "FOO")
	if best == nil {
		t.Fatal("Expected a best pair")
	}
	if best.BaseToken.Symbol != "FOO" {
		t.Errorf("Picked wrong symbol: %s", best.BaseToken.Symbol)
	}

	if BestPair(pairs, "QUX") != nil {
		t.Error("No match should yield nil")
	}
}

func TestBestPair_MatchesExchangePairSymbol(t *testing.T) {
	// Exchange listings carry pair symbols like FOOUSDT; the aggregator
	// knows the base token as FOO.
	pairs := []dexscreener.Pair{pair("FOO", 10_000, 100)}

	if BestPair(pairs, "FOOUSDT") == nil {
		t.Error("Base symbol FOO should match candidate symbol FOOUSDT")
	}
}

func TestEnrich_MergesMarketData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest/dex/search":
			w.Write([]byte(`{
				"pairs": [{
					"chainId": "solana",
					"url": "https://dexscreener.com/solana/pair1",
					"baseToken": {"address": "mint1", "name": "Foo Token", "symbol": "FOO"},
					"priceUsd": "0.5",
					"liquidity": {"usd": 60000},
					"volume": {"h24": 9000},
					"fdv": 3000000
				}]
			}`))
		case "/token-profiles/latest/v1/mint1":
			w.Write([]byte(`{"links": [{"type": "twitter", "url": "https://x.com/foo"}]}`))
		default:
			t.Errorf("Unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	fetchedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := New(dexscreener.NewClient(dexscreener.Config{BaseURL: srv.URL, RequestsPerMinute: 6000}))
	e.now = func() time.Time { return fetchedAt }

	c := &domain.TokenCandidate{Symbol: "FOOUSDT", Source: domain.SourceExchangeWS}
	enriched := e.Enrich(context.Background(), c)

	if enriched.PriceUSD == nil || *enriched.PriceUSD != 0.5 {
		t.Errorf("PriceUSD = %v", enriched.PriceUSD)
	}
	if enriched.FullyDilutedValue == nil || *enriched.FullyDilutedValue != 3_000_000 {
		t.Errorf("FullyDilutedValue = %v", enriched.FullyDilutedValue)
	}
	if enriched.TokenAddress != "mint1" {
		t.Errorf("TokenAddress should be backfilled, got %q", enriched.TokenAddress)
	}
	if enriched.DisplayName != "Foo Token" {
		t.Errorf("DisplayName should be backfilled, got %q", enriched.DisplayName)
	}
	if enriched.Links["dexscreener"] == "" || enriched.Links["twitter"] == "" {
		t.Errorf("Links should include aggregator and profile entries: %v", enriched.Links)
	}
	if !enriched.FetchedAt.Equal(fetchedAt) {
		t.Errorf("FetchedAt = %v", enriched.FetchedAt)
	}

	// Input candidate stays untouched.
	if c.PriceUSD != nil || c.TokenAddress != "" {
		t.Error("Enrich must not mutate its input")
	}
}

func TestEnrich_LooksUpByAddressWhenKnown(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"pairs": []}`))
	}))
	defer srv.Close()

	e := New(dexscreener.NewClient(dexscreener.Config{BaseURL: srv.URL, RequestsPerMinute: 6000}))
	c := &domain.TokenCandidate{
		Symbol:       "FOO",
		Source:       domain.SourceDexPoll,
		ChainID:      "solana",
		TokenAddress: "mint1",
	}
	e.Enrich(context.Background(), c)

	if gotPath != "/latest/dex/pairs/solana/mint1" {
		t.Errorf("Expected token-pairs lookup, got %s", gotPath)
	}
}

func TestEnrich_UpstreamFailureLeavesCandidateUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(dexscreener.NewClient(dexscreener.Config{BaseURL: srv.URL, RequestsPerMinute: 6000}))
	c := &domain.TokenCandidate{Symbol: "FOO", Source: domain.SourceExchangeWS}

	enriched := e.Enrich(context.Background(), c)
	if enriched == nil {
		t.Fatal("Enrich must return a candidate even on upstream failure")
	}
	if enriched.PriceUSD != nil || enriched.FullyDilutedValue != nil {
		t.Error("Failed enrichment must not invent market data")
	}
}
