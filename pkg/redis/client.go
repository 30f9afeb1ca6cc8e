package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonhee/bracket/pkg/config"
	"github.com/wonhee/bracket/pkg/logger"
)

// Client wraps the go-redis client. Redis is optional; when disabled every
// helper becomes a no-op so callers never need to branch.
type Client struct {
	rdb     *goredis.Client
	logger  *logger.Logger
	enabled bool
}

// New creates a new Redis client from config.
func New(cfg *config.Config, log *logger.Logger) (*Client, error) {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, running without cache")
		return &Client{enabled: false, logger: log}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"addr": cfg.Redis.Host + ":" + cfg.Redis.Port,
		"db":   cfg.Redis.DB,
	}).Info("Connected to Redis")

	return &Client{rdb: rdb, logger: log, enabled: true}, nil
}

// Enabled reports whether Redis is configured and reachable.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying go-redis client.
func (c *Client) Redis() *goredis.Client {
	return c.rdb
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if !c.enabled || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
