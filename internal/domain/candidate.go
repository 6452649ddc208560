package domain

import (
	"strings"
	"time"
)

// TokenCandidate is the canonical shape of a discovered listing.
// Corresponds to the candidates table in PostgreSQL.
type TokenCandidate struct {
	Symbol       string  `json:"symbol"`
	DisplayName  string  `json:"display_name,omitempty"`
	ChainID      string  `json:"chain_id,omitempty"`
	TokenAddress string  `json:"token_address,omitempty"`
	Source       Source  `json:"source"`
	// CreatedAt is the best-effort first on-chain/on-exchange appearance,
	// falling back to observation time.
	CreatedAt time.Time `json:"created_at"`

	// Enrichment fields, nil until the enrichment stage fills them.
	PriceUSD          *float64 `json:"price_usd,omitempty"`
	LiquidityUSD      *float64 `json:"liquidity_usd,omitempty"`
	Volume24hUSD      *float64 `json:"volume_24h_usd,omitempty"`
	FullyDilutedValue *float64 `json:"fully_diluted_value,omitempty"`

	Links       map[string]string `json:"links,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
	FirstSeenAt time.Time         `json:"first_seen_at"`
}

// NaturalKey returns the identity of the candidate across repeated
// observations: the token address alone when present (chain-unique),
// otherwise (source, symbol). Encoded as a single string so one unique
// column enforces both forms.
func (c *TokenCandidate) NaturalKey() string {
	if c.TokenAddress != "" {
		return "addr:" + strings.ToLower(c.TokenAddress)
	}
	return string(c.Source) + ":" + c.Symbol
}
