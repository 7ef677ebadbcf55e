// Package redisclient builds and health-checks the go-redis client used
// by the example server's Redis-backed rate limit backends.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/alfreddev/ratelimit/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps a *redis.Client with a startup health check.
type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	r := redis.NewClient(opt)
	return &Client{c: r}, nil
}

// Ping verifies connectivity within a short timeout.
func (r *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

// UniversalClient returns the underlying client for use by Backend
// implementations in ratelimit/backend/*.
func (r *Client) UniversalClient() redis.UniversalClient {
	return r.c
}

// Close releases the underlying connection pool.
func (r *Client) Close() error {
	return r.c.Close()
}
