package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"listing-radar/internal/domain"
	"listing-radar/internal/normalize"
	"listing-radar/internal/observability"
)

// StreamConfig configures the exchange ticker-stream adapter.
type StreamConfig struct {
	URL string
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
	}
}

// StreamSource consumes the exchange's symbol stream over a websocket
// and emits one event per symbol carried in each message. Disconnects
// are retried forever with capped exponential backoff; reconnecting
// re-delivering symbols already seen is fine, the dedup ledger absorbs
// them downstream.
type StreamSource struct {
	cfg StreamConfig
	now func() time.Time
}

// NewStreamSource creates a stream adapter.
func NewStreamSource(cfg StreamConfig) *StreamSource {
	def := DefaultStreamConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}

	return &StreamSource{cfg: cfg, now: time.Now}
}

// Compile-time interface check.
var _ Source = (*StreamSource)(nil)

// Name implements Source.
func (s *StreamSource) Name() string { return domain.SourceExchangeWS.String() }

// streamTicker is one entry of a stream message. Messages are JSON
// arrays of these.
type streamTicker struct {
	Symbol string `json:"s"`
	Name   string `json:"n"`
}

// Subscribe implements Source.
func (s *StreamSource) Subscribe(ctx context.Context) (<-chan domain.RawListingEvent, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, fmt.Errorf("invalid stream url %q", s.cfg.URL)
	}

	ch := make(chan domain.RawListingEvent, eventBuffer)
	go func() {
		defer close(ch)
		s.run(ctx, ch)
	}()
	return ch, nil
}

// run dials, reads until the connection breaks, and redials with
// exponential backoff. It returns only when ctx is cancelled.
func (s *StreamSource) run(ctx context.Context, ch chan<- domain.RawListingEvent) {
	delay := s.cfg.ReconnectDelay

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			log.Warn().Err(err).Str("url", s.cfg.URL).Dur("retry_in", delay).Msg("stream dial failed")
			observability.RecordSourceError(s.Name())

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = delay * 2
			if delay > s.cfg.MaxReconnectDelay {
				delay = s.cfg.MaxReconnectDelay
			}
			continue
		}

		log.Info().Str("url", s.cfg.URL).Msg("stream connected")
		delay = s.cfg.ReconnectDelay

		s.readLoop(ctx, conn, ch)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("url", s.cfg.URL).Msg("stream disconnected, reconnecting")
		observability.RecordSourceError(s.Name())
	}
}

func (s *StreamSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// readLoop reads messages until an error. Close the connection from
// another goroutine on ctx cancel so ReadMessage unblocks.
func (s *StreamSource) readLoop(ctx context.Context, conn *websocket.Conn, ch chan<- domain.RawListingEvent) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		conn.SetReadDeadline(s.now().Add(s.cfg.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(ctx, message, ch)
	}
}

// handleMessage parses one stream payload. A malformed payload is
// logged and skipped, not a disconnect.
func (s *StreamSource) handleMessage(ctx context.Context, message []byte, ch chan<- domain.RawListingEvent) {
	var tickers []streamTicker
	if err := json.Unmarshal(message, &tickers); err != nil {
		log.Warn().Err(err).Msg("malformed stream message")
		observability.RecordEventDropped(s.Name(), "parse")
		return
	}

	for _, t := range tickers {
		if normalize.CleanSymbol(t.Symbol) == "" {
			observability.RecordEventDropped(s.Name(), "parse")
			continue
		}

		ev := domain.RawListingEvent{
			Source:     domain.SourceExchangeWS,
			ObservedAt: s.now().UTC(),
			Symbol:     t.Symbol,
			Name:       t.Name,
		}

		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}
