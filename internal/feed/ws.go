package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonhee/bracket/pkg/logger"
)

const (
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 2 * time.Minute
	writeWait         = 10 * time.Second
)

// WSSubscriber consumes candle updates from the market-data collaborator
// over a websocket and pushes them into the cache. The connection is
// re-established with exponential backoff when it drops.
type WSSubscriber struct {
	url     string
	symbols []string
	cache   *Cache
	logger  *logger.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWSSubscriber creates a subscriber for the given feed URL and symbols.
func NewWSSubscriber(url string, symbols []string, cache *Cache, log *logger.Logger) *WSSubscriber {
	return &WSSubscriber{
		url:     url,
		symbols: symbols,
		cache:   cache,
		logger:  log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start connects and begins consuming candles.
func (s *WSSubscriber) Start(ctx context.Context) error {
	s.logger.WithField("url", s.url).Info("Starting candle feed subscriber")

	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("initial feed connection failed: %w", err)
	}

	go s.readLoop(ctx)
	return nil
}

// Stop closes the connection and waits for the read loop to finish.
func (s *WSSubscriber) Stop() {
	s.logger.Info("Stopping candle feed subscriber")

	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	<-s.doneCh
}

func (s *WSSubscriber) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	s.conn = conn

	// Subscribe to the configured symbols.
	sub := map[string]interface{}{
		"op":      "subscribe",
		"channel": "candles",
		"symbols": s.symbols,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	s.logger.WithField("symbols", s.symbols).Debug("Subscribed to candle feed")
	return nil
}

func (s *WSSubscriber) readLoop(ctx context.Context) {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(ctx) {
				return
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}

			s.logger.WithError(err).Warn("Candle feed read failed")
			s.connMu.Lock()
			s.conn = nil
			s.connMu.Unlock()
			continue
		}

		var candle Candle
		if err := json.Unmarshal(message, &candle); err != nil {
			s.logger.WithError(err).Debug("Skipping malformed feed message")
			continue
		}
		if candle.Symbol == "" || candle.Close <= 0 {
			continue
		}

		s.cache.Update(&candle)
	}
}

// reconnect retries the connection with exponential backoff. Returns
// false when the subscriber is stopping.
func (s *WSSubscriber) reconnect(ctx context.Context) bool {
	delay := reconnectDelay

	for {
		select {
		case <-s.stopCh:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := s.connect(ctx); err == nil {
			s.logger.Info("Candle feed reconnected")
			return true
		}

		s.logger.WithField("delay", delay).Warn("Candle feed reconnect failed, backing off")
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
