package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps redis.Client and fails safe: an unreachable Redis behaves
// like an empty cache. A nil *Client is a valid, always-missing cache.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a new Redis-backed cache client.
func New(addr, password string, db int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		logger: logger,
	}
}

// Ping reports whether Redis is reachable. Callers use it for logging only.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("cache disabled")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// GetJSON decodes the value stored at key into dst. It reports false on a
// miss, on a Redis failure, or when the stored value cannot be decoded.
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores value at key with ttl, ignoring Redis errors.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key, ignoring Redis errors.
func (c *Client) Delete(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Debug("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
