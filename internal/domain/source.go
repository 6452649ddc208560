package domain

// Source identifies which upstream adapter observed a listing.
type Source string

const (
	SourceExchangeRSS Source = "exchange_rss"
	SourceExchangeWS  Source = "exchange_ws"
	SourceDexPoll     Source = "dex_poll"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceExchangeRSS || s == SourceExchangeWS || s == SourceDexPoll
}
