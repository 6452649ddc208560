package normalize

import (
	"errors"
	"testing"
	"time"

	"listing-radar/internal/domain"
)

var (
	observedAt  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	publishedAt = time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC)
)

func TestExtractSymbol(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Exchange Will List Foo Token (FOOUSDT)", "FOOUSDT"},
		{"Exchange Will List BAR", "BAR"},
		{"New Listing: Baz Protocol (BAZ)", "BAZ"},
		{"will list qux with zero-fee promotion", "QUX"},
		{"Maintenance notice for wallet services", ""},
		{"Will List (X)", ""}, // too short for a symbol
	}

	for _, tt := range tests {
		if got := ExtractSymbol(tt.title); got != tt.want {
			t.Errorf("ExtractSymbol(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestNormalize_Announcement(t *testing.T) {
	n := New()

	c, err := n.Normalize(domain.RawListingEvent{
		Source:      domain.SourceExchangeRSS,
		ObservedAt:  observedAt,
		Title:       "Exchange Will List Foo Token (FOOUSDT)",
		Link:        "https://exchange.example/announcements/123",
		PublishedAt: &publishedAt,
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if c.Symbol != "FOOUSDT" {
		t.Errorf("Symbol = %q, want FOOUSDT", c.Symbol)
	}
	if !c.CreatedAt.Equal(publishedAt) {
		t.Errorf("CreatedAt should come from the published time, got %v", c.CreatedAt)
	}
	if c.Links["announcement"] != "https://exchange.example/announcements/123" {
		t.Errorf("Missing announcement link: %v", c.Links)
	}
}

func TestNormalize_AnnouncementFallsBackToObservedAt(t *testing.T) {
	n := New()

	c, err := n.Normalize(domain.RawListingEvent{
		Source:     domain.SourceExchangeRSS,
		ObservedAt: observedAt,
		Title:      "Exchange Will List BAR",
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !c.CreatedAt.Equal(observedAt) {
		t.Errorf("CreatedAt should fall back to observation time, got %v", c.CreatedAt)
	}
}

func TestNormalize_AnnouncementWithoutSymbol(t *testing.T) {
	n := New()

	_, err := n.Normalize(domain.RawListingEvent{
		Source:     domain.SourceExchangeRSS,
		ObservedAt: observedAt,
		Title:      "Scheduled maintenance for all spot markets",
	})
	if !errors.Is(err, ErrMissingSymbol) {
		t.Errorf("Expected ErrMissingSymbol, got %v", err)
	}
}

func TestNormalize_Ticker(t *testing.T) {
	n := New()

	c, err := n.Normalize(domain.RawListingEvent{
		Source:     domain.SourceExchangeWS,
		ObservedAt: observedAt,
		Symbol:     " newusdt ",
		Name:       "New Token",
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if c.Symbol != "NEWUSDT" {
		t.Errorf("Symbol = %q, want NEWUSDT", c.Symbol)
	}
	if c.DisplayName != "New Token" {
		t.Errorf("DisplayName = %q", c.DisplayName)
	}
	if c.NaturalKey() != "exchange_ws:NEWUSDT" {
		t.Errorf("NaturalKey = %q", c.NaturalKey())
	}
}

func TestNormalize_TickerWithoutSymbol(t *testing.T) {
	n := New()

	_, err := n.Normalize(domain.RawListingEvent{
		Source:     domain.SourceExchangeWS,
		ObservedAt: observedAt,
		Symbol:     "   ",
	})
	if !errors.Is(err, ErrMissingSymbol) {
		t.Errorf("Expected ErrMissingSymbol, got %v", err)
	}
}

func TestNormalize_Pair(t *testing.T) {
	n := New()
	pairCreated := observedAt.Add(-5 * time.Minute)

	c, err := n.Normalize(domain.RawListingEvent{
		Source:        domain.SourceDexPoll,
		ObservedAt:    observedAt,
		Symbol:        "foo",
		Name:          "Foo Token",
		ChainID:       "solana",
		TokenAddress:  "So11111111111111111111111111111111111111112",
		PairCreatedAt: &pairCreated,
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if c.Symbol != "FOO" {
		t.Errorf("Symbol = %q, want FOO", c.Symbol)
	}
	if !c.CreatedAt.Equal(pairCreated) {
		t.Errorf("CreatedAt should come from pair creation, got %v", c.CreatedAt)
	}
	if c.NaturalKey() != "addr:so11111111111111111111111111111111111111112" {
		t.Errorf("NaturalKey = %q", c.NaturalKey())
	}
}

func TestNormalize_PairWithoutAddress(t *testing.T) {
	n := New()

	_, err := n.Normalize(domain.RawListingEvent{
		Source:     domain.SourceDexPoll,
		ObservedAt: observedAt,
		Symbol:     "FOO",
	})
	if !errors.Is(err, ErrMissingTokenAddress) {
		t.Errorf("Expected ErrMissingTokenAddress, got %v", err)
	}
}

func TestNormalize_UnknownSource(t *testing.T) {
	n := New()

	_, err := n.Normalize(domain.RawListingEvent{
		Source:     domain.Source("telegram"),
		ObservedAt: observedAt,
		Symbol:     "FOO",
	})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", err)
	}
}
