// Package orchestrator runs the live detection loop: it subscribes
// every configured source and drains each source's channel into the
// pipeline until shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"listing-radar/internal/domain"
	"listing-radar/internal/pipeline"
	"listing-radar/internal/source"
)

// Orchestrator fans events from all sources into one pipeline.
type Orchestrator struct {
	sources  []source.Source
	pipeline *pipeline.Pipeline
}

// Options for creating Orchestrator.
type Options struct {
	Sources  []source.Source
	Pipeline *pipeline.Pipeline
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		sources:  opts.Sources,
		pipeline: opts.Pipeline,
	}
}

// Run subscribes all sources and processes events until ctx is
// cancelled and every source channel has drained. Subscribe failures
// are startup errors; per-event failures are contained by the pipeline
// and already logged there.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	var wg sync.WaitGroup
	for _, src := range o.sources {
		events, err := src.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", src.Name(), err)
		}
		log.Info().Str("source", src.Name()).Msg("source subscribed")

		wg.Add(1)
		go func(name string, events <-chan domain.RawListingEvent) {
			defer wg.Done()
			o.drain(ctx, name, events)
		}(src.Name(), events)
	}

	wg.Wait()
	log.Info().Msg("all sources drained")
	return ctx.Err()
}

// drain processes one source's events until its channel closes. The
// channel closes only after ctx cancellation, so buffered events still
// get a best-effort run during shutdown.
func (o *Orchestrator) drain(ctx context.Context, name string, events <-chan domain.RawListingEvent) {
	for ev := range events {
		outcome, err := o.pipeline.Process(ctx, ev)
		if err != nil {
			continue
		}
		log.Debug().
			Str("source", name).
			Str("outcome", string(outcome)).
			Msg("event processed")
	}
	log.Info().Str("source", name).Msg("source stopped")
}
