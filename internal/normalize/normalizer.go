// Package normalize converts source-specific raw listing events into
// canonical token candidates.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"listing-radar/internal/domain"
)

// Normalization drop reasons. These classify malformed items: the event
// is logged and discarded, the adapter keeps running.
var (
	ErrMissingSymbol       = errors.New("no symbol could be extracted")
	ErrMissingTokenAddress = errors.New("dex event has no token address")
	ErrUnknownSource       = errors.New("unknown event source")
)

// Announcement titles carry the tradable pair in parentheses
// ("Exchange Will List FOO (FOOUSDT)"); older phrasings only name the
// asset after "will list".
var (
	parenSymbolRe = regexp.MustCompile(`\(([A-Za-z0-9]{2,20})\)`)
	willListRe    = regexp.MustCompile(`(?i)will list\s+([A-Za-z0-9]{2,20})`)
)

// Normalizer is a pure mapper from RawListingEvent to TokenCandidate.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize maps an event to a candidate, or returns a drop reason when
// the mandatory symbol (or, for DEX sources, token address) is absent.
func (n *Normalizer) Normalize(ev domain.RawListingEvent) (*domain.TokenCandidate, error) {
	switch ev.Source {
	case domain.SourceExchangeRSS:
		return n.fromAnnouncement(ev)
	case domain.SourceExchangeWS:
		return n.fromTicker(ev)
	case domain.SourceDexPoll:
		return n.fromPair(ev)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, ev.Source)
	}
}

func (n *Normalizer) fromAnnouncement(ev domain.RawListingEvent) (*domain.TokenCandidate, error) {
	symbol := ExtractSymbol(ev.Title)
	if symbol == "" {
		return nil, fmt.Errorf("%w: title %q", ErrMissingSymbol, ev.Title)
	}

	c := &domain.TokenCandidate{
		Symbol:    symbol,
		Source:    ev.Source,
		CreatedAt: ev.ObservedAt,
		FetchedAt: ev.ObservedAt,
	}
	if ev.PublishedAt != nil && !ev.PublishedAt.IsZero() {
		c.CreatedAt = *ev.PublishedAt
	}
	if ev.Link != "" {
		c.Links = map[string]string{"announcement": ev.Link}
	}
	return c, nil
}

func (n *Normalizer) fromTicker(ev domain.RawListingEvent) (*domain.TokenCandidate, error) {
	symbol := CleanSymbol(ev.Symbol)
	if symbol == "" {
		return nil, ErrMissingSymbol
	}

	return &domain.TokenCandidate{
		Symbol:      symbol,
		DisplayName: strings.TrimSpace(ev.Name),
		Source:      ev.Source,
		CreatedAt:   ev.ObservedAt,
		FetchedAt:   ev.ObservedAt,
	}, nil
}

func (n *Normalizer) fromPair(ev domain.RawListingEvent) (*domain.TokenCandidate, error) {
	symbol := CleanSymbol(ev.Symbol)
	if symbol == "" {
		return nil, ErrMissingSymbol
	}
	// Exchange listings never carry an address; DEX tokens always must.
	if strings.TrimSpace(ev.TokenAddress) == "" {
		return nil, fmt.Errorf("%w: symbol %q", ErrMissingTokenAddress, symbol)
	}

	c := &domain.TokenCandidate{
		Symbol:       symbol,
		DisplayName:  strings.TrimSpace(ev.Name),
		ChainID:      strings.TrimSpace(ev.ChainID),
		TokenAddress: strings.TrimSpace(ev.TokenAddress),
		Source:       ev.Source,
		CreatedAt:    ev.ObservedAt,
		FetchedAt:    ev.ObservedAt,
	}
	if ev.PairCreatedAt != nil && !ev.PairCreatedAt.IsZero() {
		c.CreatedAt = *ev.PairCreatedAt
	}
	return c, nil
}

// ExtractSymbol pulls a trading symbol out of an announcement title.
// The parenthesized pair wins over the asset name after "will list".
func ExtractSymbol(title string) string {
	if m := parenSymbolRe.FindStringSubmatch(title); m != nil {
		return CleanSymbol(m[1])
	}
	if m := willListRe.FindStringSubmatch(title); m != nil {
		return CleanSymbol(m[1])
	}
	return ""
}

// CleanSymbol uppercases and strips surrounding whitespace.
func CleanSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
