// Package dexscreener is a client for the DEX aggregator's public REST
// API. Calls are rate limited and wrapped in a circuit breaker; the free
// tier tolerates roughly one request per second.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"listing-radar/internal/observability"
)

// DefaultBaseURL is the aggregator's public API root.
const DefaultBaseURL = "https://api.dexscreener.com"

// StatusError reports a non-200 response. Callers treat it as transient:
// retry next cycle, proceed without enrichment.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dexscreener %s: status %d", e.Endpoint, e.Code)
}

// Config controls client behavior.
type Config struct {
	BaseURL string
	// RequestsPerMinute bounds outbound call rate. Defaults to 60.
	RequestsPerMinute int
	// Timeout bounds a single HTTP request. Defaults to 10s.
	Timeout time.Duration
}

// Client talks to the aggregator REST API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a new aggregator client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{Name: "dexscreener"}
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	settings.Timeout = 30 * time.Second

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Search queries pairs matching a symbol or free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	var resp pairsResponse
	endpoint := "/latest/dex/search?q=" + url.QueryEscape(query)
	if err := c.get(ctx, "search", endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

// RecentPairs fetches the latest pairs feed used by the DEX poll adapter.
func (c *Client) RecentPairs(ctx context.Context) ([]Pair, error) {
	var resp pairsResponse
	if err := c.get(ctx, "recent_pairs", "/latest/dex/pairs", &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

// TokenPairs looks up pairs for a token address on one chain.
func (c *Client) TokenPairs(ctx context.Context, chainID, tokenAddress string) ([]Pair, error) {
	var resp pairsResponse
	endpoint := fmt.Sprintf("/latest/dex/pairs/%s/%s", url.PathEscape(chainID), url.PathEscape(tokenAddress))
	if err := c.get(ctx, "token_pairs", endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

// TokenProfileLinks fetches the social/web links from a token's profile.
// A missing profile is not an error; the result is simply empty.
func (c *Client) TokenProfileLinks(ctx context.Context, tokenAddress string) (map[string]string, error) {
	var resp profileResponse
	endpoint := "/token-profiles/latest/v1/" + url.PathEscape(tokenAddress)
	if err := c.get(ctx, "token_profile", endpoint, &resp); err != nil {
		return nil, err
	}

	links := make(map[string]string, len(resp.Links))
	for _, l := range resp.Links {
		name := l.Type
		if name == "" {
			name = l.Label
		}
		if name == "" || l.URL == "" {
			continue
		}
		links[name] = l.URL
	}
	return links, nil
}

// get performs a rate-limited, breaker-guarded GET and decodes JSON.
func (c *Client) get(ctx context.Context, name, endpoint string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("dexscreener %s: %w", name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Endpoint: name, Code: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", name, err)
		}
		return nil, nil
	})
	observability.RecordAggregatorLatency(name, time.Since(start).Seconds())
	return err
}
