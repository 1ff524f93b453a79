package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_stock.lua
var setStockScript string

const dashboardKey = "dashboard:summary"

// ErrCacheMiss is returned when a cached value does not exist
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb            *redis.Client
	setStockScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
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

	return &Client{
		rdb:            rdb,
		setStockScript: redis.NewScript(setStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock mirrors a product's stock. Updates older than the stored one
// are ignored so replayed events cannot move the mirror backwards.
func (c *Client) SetStock(ctx context.Context, productID int64, stock int, at time.Time) (bool, error) {
	result, err := c.setStockScript.Run(ctx, c.rdb, []string{stockKey(productID)}, stock, at.UnixMilli()).Result()
	if err != nil {
		return false, fmt.Errorf("set stock script failed: %w", err)
	}

	applied, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return applied == 1, nil
}

// GetStock retrieves the mirrored stock of a product
func (c *Client) GetStock(ctx context.Context, productID int64) (int, error) {
	val, err := c.rdb.HGet(ctx, stockKey(productID), "stock").Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// GetDashboard returns the cached dashboard payload
func (c *Client) GetDashboard(ctx context.Context) ([]byte, error) {
	val, err := c.rdb.Get(ctx, dashboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

// SetDashboard caches the dashboard payload with a TTL
func (c *Client) SetDashboard(ctx context.Context, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, dashboardKey, payload, ttl).Err()
}

// InvalidateDashboard drops the cached dashboard
func (c *Client) InvalidateDashboard(ctx context.Context) error {
	return c.rdb.Del(ctx, dashboardKey).Err()
}
