// Package pipeline drives one raw listing event through
// normalize → gate → enrich → filter → persist → notify.
//
// Every per-item error is contained within that item's run: a malformed
// payload, a failed enrichment, or a store hiccup never terminates the
// adapter that produced the event, and no item is dropped without a log
// record.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"listing-radar/internal/domain"
	"listing-radar/internal/enrich"
	"listing-radar/internal/filter"
	"listing-radar/internal/ledger"
	"listing-radar/internal/normalize"
	"listing-radar/internal/notify"
	"listing-radar/internal/observability"
	"listing-radar/internal/storage"
)

// Outcome classifies how one event's run ended.
type Outcome string

const (
	// OutcomeDropped means normalization discarded the event.
	OutcomeDropped Outcome = "dropped"
	// OutcomeDuplicate means the natural key was already known.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRejected means the legitimacy filter rejected the candidate.
	OutcomeRejected Outcome = "rejected"
	// OutcomeStored means the candidate was persisted and notified.
	OutcomeStored Outcome = "stored"
	// OutcomeFailed means persistence failed; the reservation stays
	// unconfirmed and becomes reclaimable after the ledger's window.
	OutcomeFailed Outcome = "failed"
)

// Pipeline wires the per-event stages together. It is stateless; all
// coordination happens in the shared durable store, so any number of
// pipelines (or processes) may run concurrently.
type Pipeline struct {
	normalizer *normalize.Normalizer
	gate       *ledger.Ledger
	enricher   *enrich.Enricher
	thresholds filter.Thresholds
	candidates storage.CandidateStore
	notifier   notify.Notifier
}

// Options for creating a Pipeline.
type Options struct {
	Normalizer *normalize.Normalizer
	Gate       *ledger.Ledger
	Enricher   *enrich.Enricher
	Thresholds filter.Thresholds
	Candidates storage.CandidateStore
	Notifier   notify.Notifier
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.New()
	}

	return &Pipeline{
		normalizer: normalizer,
		gate:       opts.Gate,
		enricher:   opts.Enricher,
		thresholds: opts.Thresholds,
		candidates: opts.Candidates,
		notifier:   opts.Notifier,
	}
}

// Process runs one event through the pipeline. The returned error is
// non-nil only for persistence-level failures; it is already logged and
// callers may ignore it beyond metrics.
func (p *Pipeline) Process(ctx context.Context, ev domain.RawListingEvent) (Outcome, error) {
	observability.RecordEventReceived(ev.Source.String())

	candidate, err := p.normalizer.Normalize(ev)
	if err != nil {
		log.Debug().Err(err).
			Str("source", ev.Source.String()).
			Msg("event dropped by normalizer")
		observability.RecordEventDropped(ev.Source.String(), "parse")
		return OutcomeDropped, nil
	}
	candidate.FirstSeenAt = ev.ObservedAt

	key := candidate.NaturalKey()
	logger := log.With().
		Str("natural_key", key).
		Str("symbol", candidate.Symbol).
		Str("source", candidate.Source.String()).
		Logger()

	// Gate before enrich: the reservation is one cheap insert, the
	// enrichment is a remote API call.
	isNew, err := p.gate.Reserve(ctx, key, candidate.FirstSeenAt)
	if err != nil {
		logger.Error().Err(err).Msg("ledger reservation failed")
		observability.RecordPersistenceError()
		return OutcomeFailed, fmt.Errorf("reserve %s: %w", key, err)
	}
	if !isNew {
		logger.Debug().Msg("already known, skipping")
		observability.RecordDuplicateSkipped(candidate.Source.String())
		return OutcomeDuplicate, nil
	}
	logger.Info().Msg("new listing reserved")
	observability.RecordKeyReserved(candidate.Source.String())

	candidate = p.enricher.Enrich(ctx, candidate)

	verdict := filter.Evaluate(candidate, p.thresholds)
	observability.RecordVerdict(verdict.Accepted)
	if !verdict.Accepted {
		logger.Info().Str("reason", verdict.Reason).Msg("candidate rejected")
		// Rejection is a completed run: confirm so the key is not
		// reprocessed after the reclaim window.
		if err := p.gate.Confirm(ctx, key); err != nil {
			logger.Error().Err(err).Msg("ledger confirm failed")
		}
		return OutcomeRejected, nil
	}

	if err := p.candidates.Upsert(ctx, candidate); err != nil {
		logger.Error().Err(err).Msg("persist failed")
		observability.RecordPersistenceError()
		return OutcomeFailed, fmt.Errorf("persist %s: %w", key, err)
	}
	observability.RecordCandidateStored(candidate.Source.String())

	if err := p.gate.Confirm(ctx, key); err != nil {
		// The row is stored; a failed confirm only risks one redundant
		// (idempotent) reprocess after the reclaim window.
		logger.Error().Err(err).Msg("ledger confirm failed")
	}

	// Fire-and-forget: the fanout logs and swallows channel failures.
	if p.notifier != nil {
		_ = p.notifier.Notify(ctx, candidate, verdict)
	}

	logger.Info().Msg("candidate stored and notified")
	return OutcomeStored, nil
}
