package feed

import (
	"context"
	"sync"
	"time"

	"github.com/wonhee/bracket/pkg/logger"
	"github.com/wonhee/bracket/pkg/redis"
)

// Cache holds the most recent candle per symbol.
type Cache struct {
	mu      sync.RWMutex
	candles map[string]*Candle
	ttl     time.Duration
	logger  *logger.Logger

	// snapshot, when set, mirrors updates into Redis so a restarted
	// session has a last-known price before the feed reconnects.
	snapshot *redis.Cache
}

// NewCache creates a candle cache. Candles older than ttl count as stale.
func NewCache(ttl time.Duration, snapshot *redis.Cache, log *logger.Logger) *Cache {
	return &Cache{
		candles:  make(map[string]*Candle),
		ttl:      ttl,
		logger:   log,
		snapshot: snapshot,
	}
}

// Update stores a candle unless an equal-or-newer one is already cached.
func (c *Cache) Update(candle *Candle) bool {
	c.mu.Lock()

	existing, exists := c.candles[candle.Symbol]
	if exists && !candle.Time.After(existing.Time) {
		c.mu.Unlock()
		return false
	}

	c.candles[candle.Symbol] = candle
	c.mu.Unlock()

	if c.snapshot != nil {
		if err := c.snapshot.Set(context.Background(), "candle:"+candle.Symbol, candle, c.ttl); err != nil {
			c.logger.WithError(err).Debug("Failed to snapshot candle")
		}
	}

	return true
}

// Latest returns the most recent candle for a symbol.
func (c *Cache) Latest(symbol string) (*Candle, bool) {
	c.mu.RLock()
	candle, ok := c.candles[symbol]
	c.mu.RUnlock()

	if ok {
		return candle, true
	}

	// Fall back to the snapshot after a restart.
	if c.snapshot != nil {
		var snap Candle
		found, err := c.snapshot.Get(context.Background(), "candle:"+symbol, &snap)
		if err == nil && found {
			return &snap, true
		}
	}

	return nil, false
}

// LastClose returns the latest close price for a symbol, used as the
// current price for market-entry validation. Stale candles still return
// a price; callers that care check freshness separately.
func (c *Cache) LastClose(symbol string) (float64, bool) {
	candle, ok := c.Latest(symbol)
	if !ok {
		return 0, false
	}
	return candle.Close, true
}

// CleanStale drops candles older than the TTL and returns the count.
func (c *Cache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for symbol, candle := range c.candles {
		if now.Sub(candle.Time) > c.ttl {
			delete(c.candles, symbol)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale candles from cache")
	}
	return count
}

// Len returns the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.candles)
}
