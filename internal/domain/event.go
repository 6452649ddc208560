package domain

import "time"

// RawListingEvent is a source-specific observation of a possibly new
// listing. Adapters fill only the fields their upstream provides; the
// normalizer turns this into a TokenCandidate or drops it.
type RawListingEvent struct {
	Source     Source
	ObservedAt time.Time

	// Announcement feed fields.
	Title       string
	Link        string
	PublishedAt *time.Time

	// Ticker stream fields.
	Symbol string
	Name   string

	// DEX pair fields.
	ChainID       string
	TokenAddress  string
	PairCreatedAt *time.Time
}
