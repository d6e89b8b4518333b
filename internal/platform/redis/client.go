// Package redis connects the resolver cache.
package redis

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"namespaces/internal/platform/config"
)

const clientName = "namespaces-resolver"

// Client is a go-redis client whose health check also reports pool
// exhaustion.
type Client struct {
	*redis.Client
	lastTimeouts atomic.Uint32
}

// New connects and pings. No URL means no cache: it returns nil, nil.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.ClientName = clientName
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

// Health pings Redis and fails when callers timed out waiting for a pooled
// connection since the previous check.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return err
	}
	timeouts := c.PoolStats().Timeouts
	if prev := c.lastTimeouts.Swap(timeouts); timeouts > prev {
		return fmt.Errorf("redis pool exhausted: %d waits timed out", timeouts-prev)
	}
	return nil
}
