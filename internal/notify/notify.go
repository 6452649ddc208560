// Package notify fans accepted candidates out to alerting channels.
// Delivery is fire-and-forget relative to the pipeline: a failed channel
// is logged and swallowed, never rolled back into persistence.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"listing-radar/internal/domain"
	"listing-radar/internal/observability"
)

// Notifier delivers one accepted candidate to a channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, c *domain.TokenCandidate, v domain.Verdict) error
}

// Fanout dispatches to every configured channel. Failures are counted
// and logged per channel; the overall call never fails.
type Fanout struct {
	targets []Notifier
}

// NewFanout creates a Fanout over the given channels.
func NewFanout(targets ...Notifier) *Fanout {
	return &Fanout{targets: targets}
}

// Compile-time interface check.
var _ Notifier = (*Fanout)(nil)

// Name implements Notifier.
func (f *Fanout) Name() string { return "fanout" }

// Notify dispatches to all targets.
func (f *Fanout) Notify(ctx context.Context, c *domain.TokenCandidate, v domain.Verdict) error {
	for _, t := range f.targets {
		if err := t.Notify(ctx, c, v); err != nil {
			log.Error().Err(err).
				Str("channel", t.Name()).
				Str("symbol", c.Symbol).
				Msg("notification failed")
			observability.RecordNotificationFailure(t.Name())
			continue
		}
	}
	observability.RecordNotificationSent()
	return nil
}

// LogNotifier writes the alert to the structured log.
type LogNotifier struct{}

// Compile-time interface check.
var _ Notifier = (*LogNotifier)(nil)

// Name implements Notifier.
func (n *LogNotifier) Name() string { return "log" }

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, c *domain.TokenCandidate, v domain.Verdict) error {
	ev := log.Info().
		Str("symbol", c.Symbol).
		Str("source", c.Source.String()).
		Str("natural_key", c.NaturalKey())
	if c.PriceUSD != nil {
		ev = ev.Float64("price_usd", *c.PriceUSD)
	}
	if v.LiquidityUSD != nil {
		ev = ev.Float64("liquidity_usd", *v.LiquidityUSD)
	}
	if v.FullyDilutedValue != nil {
		ev = ev.Float64("fully_diluted_value", *v.FullyDilutedValue)
	}
	ev.Msg("new listing alert")
	return nil
}
