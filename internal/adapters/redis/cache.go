package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

const seatsKey = "seats:snapshot"

// Cache holds the seat-list snapshot between mutations. All operations
// are best effort: a cache failure is logged and the caller falls back
// to the store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger observability.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger observability.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Get(ctx context.Context) ([]domain.Seat, bool) {
	val, err := c.client.Get(ctx, seatsKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("seat cache get failed")
		return nil, false
	}
	var seats []domain.Seat
	if err := json.Unmarshal(val, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

func (c *Cache) Set(ctx context.Context, seats []domain.Seat) {
	data, err := json.Marshal(seats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, seatsKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("seat cache set failed")
	}
}

func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, seatsKey).Err(); err != nil {
		c.logger.WithError(err).Warn("seat cache invalidate failed")
	}
}
