// Package finnhub streams live company news from the Finnhub websocket API
// into a NewsStore.
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/sentiment"
	"market-signal-lab/internal/storage"
)

// DefaultEndpoint is the public Finnhub websocket endpoint.
const DefaultEndpoint = "wss://ws.finnhub.io"

// StreamConfig configures reconnect and I/O timeouts.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultStreamConfig and keeps the
// maximum reconnect delay at or above the initial one.
func (c StreamConfig) withDefaults() StreamConfig {
	def := DefaultStreamConfig()
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		c.MaxReconnectDelay = c.ReconnectDelay
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

// backoff doubles a reconnect delay up to max.
type backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max, next: initial}
}

// Next returns the delay to wait now and doubles the following one.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next = min(b.next*2, b.max)
	return d
}

// Reset restarts the sequence at the initial delay.
func (b *backoff) Reset() {
	b.next = b.initial
}

// StreamOptions configures NewStream.
type StreamOptions struct {
	Endpoint string
	Token    string
	Store    storage.NewsStore
	Analyzer *sentiment.Analyzer
	Logger   *zerolog.Logger
	Config   *StreamConfig
}

// Stream subscribes to news for a set of symbols and stores every item.
type Stream struct {
	endpoint string
	config   StreamConfig
	store    storage.NewsStore
	analyzer *sentiment.Analyzer
	logger   zerolog.Logger
}

type subscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

type newsPayload struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// NewStream creates a stream. Token is required.
func NewStream(opts StreamOptions) (*Stream, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("finnhub token is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("news store is required")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse finnhub endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", opts.Token)
	u.RawQuery = q.Encode()

	cfg := DefaultStreamConfig()
	if opts.Config != nil {
		cfg = opts.Config.withDefaults()
	}
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Stream{
		endpoint: u.String(),
		config:   cfg,
		store:    opts.Store,
		analyzer: analyzer,
		logger:   logger.With().Str("component", "finnhub").Logger(),
	}, nil
}

// Run connects, subscribes to symbols and stores news until ctx is done.
// Connection failures are retried with exponential backoff, which restarts
// after every connection that got as far as subscribing.
func (s *Stream) Run(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to subscribe")
	}

	retry := newBackoff(s.config.ReconnectDelay, s.config.MaxReconnectDelay)
	for {
		subscribed, err := s.runOnce(ctx, symbols)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			retry.Reset()
		}
		delay := retry.Next()
		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("news stream disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runOnce holds a single connection until it fails or ctx is done.
// It reports whether every subscription was sent.
func (s *Stream) runOnce(ctx context.Context, symbols []string) (bool, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { conn.Close() }) }
	defer closeConn()

	// Unblock ReadMessage on shutdown.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteTimeout))
			closeConn()
		case <-stop:
		}
	}()

	wanted := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = struct{}{}
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(subscribeMessage{Type: "subscribe-news", Symbol: sym}); err != nil {
			return false, fmt.Errorf("write subscribe: %w", err)
		}
	}
	s.logger.Info().Int("symbols", len(symbols)).Msg("subscribed to news stream")

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read message: %w", err)
		}
		if _, err := s.handleMessage(ctx, message, wanted); err != nil {
			s.logger.Error().Err(err).Msg("handle news message")
		}
	}
}

// handleMessage stores the news items of one frame and returns how many were new.
func (s *Stream) handleMessage(ctx context.Context, message []byte, wanted map[string]struct{}) (int, error) {
	var msg inboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return 0, fmt.Errorf("decode message: %w", err)
	}

	switch msg.Type {
	case "news":
	case "error":
		return 0, fmt.Errorf("finnhub error: %s", msg.Msg)
	default:
		// ping and trade frames
		return 0, nil
	}

	var payloads []newsPayload
	if err := json.Unmarshal(msg.Data, &payloads); err != nil {
		return 0, fmt.Errorf("decode news data: %w", err)
	}

	stored := 0
	for _, p := range payloads {
		if p.URL == "" || p.Datetime == 0 {
			continue
		}
		score := s.analyzer.Score(p.Headline + " " + p.Summary)
		for _, sym := range strings.Split(p.Related, ",") {
			sym = strings.TrimSpace(sym)
			if _, ok := wanted[sym]; !ok {
				continue
			}
			item := &domain.NewsItem{
				Symbol:      sym,
				Headline:    p.Headline,
				Summary:     p.Summary,
				Source:      p.Source,
				URL:         p.URL,
				PublishedAt: time.Unix(p.Datetime, 0).UTC(),
				Sentiment:   score,
			}
			if err := s.store.Insert(ctx, item); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				return stored, fmt.Errorf("store news item: %w", err)
			}
			observability.RecordNewsReceived()
			stored++
		}
	}
	return stored, nil
}
