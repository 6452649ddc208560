package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Config{
		BaseURL:           srv.URL,
		RequestsPerMinute: 6000, // no throttling in tests
	})
	return client, srv
}

func TestSearch_DecodesPairs(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/search" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "FOO" {
			t.Errorf("Unexpected query: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"pairs": [{
				"chainId": "solana",
				"dexId": "raydium",
				"url": "https://dexscreener.com/solana/pair1",
				"pairAddress": "pair1",
				"baseToken": {"address": "mint1", "name": "Foo Token", "symbol": "FOO"},
				"quoteToken": {"address": "usdc", "name": "USD Coin", "symbol": "USDC"},
				"priceUsd": "1.25",
				"liquidity": {"usd": 50000},
				"volume": {"h24": 12000},
				"fdv": 2500000,
				"pairCreatedAt": 1748779200000
			}]
		}`))
	}))
	defer srv.Close()

	pairs, err := client.Search(context.Background(), "FOO")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 pair, got %d", len(pairs))
	}

	p := pairs[0]
	if p.BaseToken.Symbol != "FOO" {
		t.Errorf("BaseToken.Symbol = %q", p.BaseToken.Symbol)
	}
	if got := p.Price(); got == nil || *got != 1.25 {
		t.Errorf("Price = %v, want 1.25", got)
	}
	if got := p.LiquidityUSD(); got == nil || *got != 50000 {
		t.Errorf("LiquidityUSD = %v, want 50000", got)
	}
	if got := p.VolumeH24(); got == nil || *got != 12000 {
		t.Errorf("VolumeH24 = %v, want 12000", got)
	}
	if p.FDV == nil || *p.FDV != 2500000 {
		t.Errorf("FDV = %v, want 2500000", p.FDV)
	}
	want := time.UnixMilli(1748779200000).UTC()
	if !p.CreatedAt().Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt(), want)
	}
}

func TestPair_MissingOptionalFields(t *testing.T) {
	p := Pair{}
	if p.Price() != nil {
		t.Error("Price of empty pair should be nil")
	}
	if p.LiquidityUSD() != nil {
		t.Error("LiquidityUSD of empty pair should be nil")
	}
	if p.VolumeH24() != nil {
		t.Error("VolumeH24 of empty pair should be nil")
	}
	if !p.CreatedAt().IsZero() {
		t.Error("CreatedAt of empty pair should be zero")
	}

	p.PriceUSD = "not-a-number"
	if p.Price() != nil {
		t.Error("Malformed price should parse to nil")
	}
}

func TestGet_NonOKStatus(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := client.Search(context.Background(), "FOO")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Errorf("Code = %d, want 429", statusErr.Code)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := client.Search(ctx, "FOO"); err == nil {
			t.Fatal("Expected error from failing upstream")
		}
	}

	// Breaker is now open: the request fails without touching the server.
	_, err := client.Search(ctx, "FOO")
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Errorf("Expected breaker error, got upstream status: %v", err)
	}
	if err == nil {
		t.Fatal("Expected open-breaker error")
	}
}

func TestTokenPairs_Path(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/pairs/solana/mint1" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"pairs": []}`))
	}))
	defer srv.Close()

	pairs, err := client.TokenPairs(context.Background(), "solana", "mint1")
	if err != nil {
		t.Fatalf("TokenPairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Expected empty pairs, got %d", len(pairs))
	}
}

func TestTokenProfileLinks(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-profiles/latest/v1/mint1" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"links": [
				{"type": "twitter", "url": "https://x.com/foo"},
				{"label": "Website", "url": "https://foo.example"},
				{"type": "", "label": "", "url": "https://dropped.example"},
				{"type": "discord", "url": ""}
			]
		}`))
	}))
	defer srv.Close()

	links, err := client.TokenProfileLinks(context.Background(), "mint1")
	if err != nil {
		t.Fatalf("TokenProfileLinks failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d: %v", len(links), links)
	}
	if links["twitter"] != "https://x.com/foo" {
		t.Errorf("twitter link = %q", links["twitter"])
	}
	if links["Website"] != "https://foo.example" {
		t.Errorf("Website link = %q", links["Website"])
	}
}
