package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"listing-radar/internal/domain"
	"listing-radar/internal/observability"
)

// DefaultListingKeywords match announcement titles that usually indicate
// a new listing.
var DefaultListingKeywords = []string{"will list", "lists", "listing"}

// FeedConfig configures the announcement-feed adapter.
type FeedConfig struct {
	URL      string
	Interval time.Duration
	// Keywords are matched case-insensitively as substrings against
	// entry titles. Defaults to DefaultListingKeywords.
	Keywords []string
}

// FeedSource polls an exchange's listing-announcement feed on a fixed
// interval and emits one event per entry whose title matches the
// keyword set.
type FeedSource struct {
	cfg      FeedConfig
	keywords []string
	parser   *gofeed.Parser
	now      func() time.Time
}

// NewFeedSource creates a feed adapter.
func NewFeedSource(cfg FeedConfig) *FeedSource {
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = DefaultListingKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	return &FeedSource{
		cfg:      cfg,
		keywords: lowered,
		parser:   gofeed.NewParser(),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Source = (*FeedSource)(nil)

// Name implements Source.
func (s *FeedSource) Name() string { return domain.SourceExchangeRSS.String() }

// Subscribe implements Source. An unparsable URL is the only fatal
// error; feed fetch or parse failures are per-cycle and logged.
func (s *FeedSource) Subscribe(ctx context.Context) (<-chan domain.RawListingEvent, error) {
	if _, err := url.ParseRequestURI(s.cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid feed url %q: %w", s.cfg.URL, err)
	}

	ch := make(chan domain.RawListingEvent, eventBuffer)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		// First cycle immediately, then on the interval.
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

// pollOnce fetches the feed and emits matching entries. Failure yields
// nothing for this cycle; the next cycle retries.
func (s *FeedSource) pollOnce(ctx context.Context, ch chan<- domain.RawListingEvent) {
	feed, err := s.parser.ParseURLWithContext(s.cfg.URL, ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", s.cfg.URL).Msg("feed fetch failed")
		observability.RecordSourceError(s.Name())
		return
	}

	matched := 0
	for _, item := range feed.Items {
		if item == nil || !s.titleMatches(item.Title) {
			continue
		}

		ev := domain.RawListingEvent{
			Source:      domain.SourceExchangeRSS,
			ObservedAt:  s.now().UTC(),
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			PublishedAt: item.PublishedParsed,
		}

		select {
		case ch <- ev:
			matched++
		case <-ctx.Done():
			return
		}
	}

	log.Debug().Int("entries", len(feed.Items)).Int("matched", matched).Msg("feed cycle complete")
}

func (s *FeedSource) titleMatches(title string) bool {
	lowered := strings.ToLower(title)
	for _, k := range s.keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}
