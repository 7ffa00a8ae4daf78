package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"

	"github.com/go-redis/redis/v8"
)

const productsKey = "catalog:products"

// Client caches the product catalog so get_products does not hit the
// database on every refresh. Checkouts invalidate the cache; readers fall
// back to the store on a miss.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis-backed catalog cache
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
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

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetProducts returns the cached catalog. The second result is false on a
// cache miss.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, productsKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached catalog: %w", err)
	}
	return products, true, nil
}

// SetProducts stores the catalog with the configured TTL
func (c *Client) SetProducts(ctx context.Context, products []models.Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productsKey, raw, c.ttl).Err()
}

// InvalidateProducts drops the cached catalog after a stock change
func (c *Client) InvalidateProducts(ctx context.Context) error {
	return c.rdb.Del(ctx, productsKey).Err()
}
