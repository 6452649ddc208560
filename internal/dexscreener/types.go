package dexscreener

import (
	"strconv"
	"time"
)

// Pair is one trading pair as returned by the aggregator's search,
// recent-pairs, and token-pairs endpoints.
type Pair struct {
	ChainID       string     `json:"chainId"`
	DexID         string     `json:"dexId"`
	URL           string     `json:"url"`
	PairAddress   string     `json:"pairAddress"`
	BaseToken     Token      `json:"baseToken"`
	QuoteToken    Token      `json:"quoteToken"`
	PriceUSD      string     `json:"priceUsd"`
	Liquidity     *Liquidity `json:"liquidity"`
	Volume        *Volume    `json:"volume"`
	FDV           *float64   `json:"fdv"`
	PairCreatedAt int64      `json:"pairCreatedAt"` // epoch milliseconds
}

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity holds pooled liquidity figures.
type Liquidity struct {
	USD *float64 `json:"usd"`
}

// Volume holds rolling trade volume figures.
type Volume struct {
	H24 *float64 `json:"h24"`
}

// Price parses the priceUsd string. Returns nil when absent or malformed.
func (p *Pair) Price() *float64 {
	if p.PriceUSD == "" {
		return nil
	}
	v, err := strconv.ParseFloat(p.PriceUSD, 64)
	if err != nil {
		return nil
	}
	return &v
}

// LiquidityUSD returns pooled USD liquidity, nil when absent.
func (p *Pair) LiquidityUSD() *float64 {
	if p.Liquidity == nil {
		return nil
	}
	return p.Liquidity.USD
}

// VolumeH24 returns 24h USD volume, nil when absent.
func (p *Pair) VolumeH24() *float64 {
	if p.Volume == nil {
		return nil
	}
	return p.Volume.H24
}

// CreatedAt returns the pair creation time, zero when unreported.
func (p *Pair) CreatedAt() time.Time {
	if p.PairCreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.PairCreatedAt).UTC()
}

// pairsResponse wraps the pairs array common to the pair endpoints.
type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// ProfileLink is one external link from a token profile.
type ProfileLink struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// profileResponse is the token-profiles endpoint payload.
type profileResponse struct {
	Links []ProfileLink `json:"links"`
}
