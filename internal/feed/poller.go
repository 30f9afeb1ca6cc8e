package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonhee/bracket/pkg/httputil"
	"github.com/wonhee/bracket/pkg/logger"
)

// Poller is the REST fallback when no websocket feed is configured. It
// fetches the latest candle per symbol on a fixed interval, throttled so
// a large symbol list cannot hammer the collaborator.
type Poller struct {
	client   *httputil.Client
	baseURL  string
	symbols  []string
	interval time.Duration
	limiter  *rate.Limiter
	cache    *Cache
	logger   *logger.Logger
}

// NewPoller creates a poller. rps caps candle requests per second.
func NewPoller(client *httputil.Client, baseURL string, symbols []string,
	interval time.Duration, rps float64, cache *Cache, log *logger.Logger,
) *Poller {
	if rps <= 0 {
		rps = 1
	}
	return &Poller{
		client:   client,
		baseURL:  baseURL,
		symbols:  symbols,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		cache:    cache,
		logger:   log,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.WithFields(map[string]interface{}{
		"interval": p.interval,
		"symbols":  p.symbols,
	}).Info("Starting candle poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Prime the cache immediately.
	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Candle poller stopped")
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	for _, symbol := range p.symbols {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		candle, err := p.fetch(ctx, symbol)
		if err != nil {
			p.logger.WithError(err).WithField("symbol", symbol).Warn("Candle poll failed")
			continue
		}
		p.cache.Update(candle)
	}
}

func (p *Poller) fetch(ctx context.Context, symbol string) (*Candle, error) {
	endpoint := fmt.Sprintf("%s/candles/%s/latest", p.baseURL, url.PathEscape(symbol))

	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("feed returned %d for %s", resp.StatusCode, symbol)
	}

	var candle Candle
	if err := json.NewDecoder(resp.Body).Decode(&candle); err != nil {
		return nil, fmt.Errorf("failed to decode candle: %w", err)
	}
	if candle.Symbol == "" {
		candle.Symbol = symbol
	}

	return &candle, nil
}
