// Package source contains the upstream adapters. Each adapter watches
// one upstream (announcement feed, exchange websocket, DEX aggregator)
// and emits raw listing events on a channel until its context is
// cancelled. A failed cycle or message is logged and skipped; only an
// unrecoverable setup problem (an invalid endpoint) fails Subscribe.
package source

import (
	"context"

	"listing-radar/internal/domain"
)

// Source is a restartable producer of raw listing events.
type Source interface {
	Name() string

	// Subscribe starts the adapter and returns its event channel. The
	// channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan domain.RawListingEvent, error)
}

// eventBuffer is the channel buffer shared by all adapters; bursts from
// one poll cycle should not block the producer while the pipeline works
// through them.
const eventBuffer = 64
