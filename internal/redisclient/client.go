// Package redisclient provides the shared keyed counter with TTL used to
// throttle the public checkout endpoints. The counter lives in Redis so the
// limit holds across server instances.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// incrWithTTLScript atomically increments a counter and sets its expiry on
// first increment. INCR and EXPIRE must be one atomic step: a crash between
// the two would leave a counter without TTL that blocks the key forever.
var incrWithTTLScript = redis.NewScript(`
local val = redis.call('INCR', KEYS[1])
if val == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return val
`)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Allow increments the counter for key within the current window and reports
// whether the caller is still under the limit.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	result, err := incrWithTTLScript.Run(ctx, c.rdb,
		[]string{"throttle:" + key}, int(window.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("throttle script failed: %w", err)
	}

	count, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type %T", result)
	}

	return count <= int64(limit), nil
}

// Reset clears the counter for key
func (c *Client) Reset(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, "throttle:"+key).Err()
}
