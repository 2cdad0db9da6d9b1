package trip

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"backend-travelbuddy/internal/model"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "trips:snapshot"

// Cache keeps the hydrated trip list in redis. A nil *Cache is a valid,
// always-missing cache.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if rdb == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) Get(ctx context.Context) ([]model.Trip, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("trip cache read failed", "err", err)
		}
		return nil, false
	}
	var trips []model.Trip
	if err := json.Unmarshal(raw, &trips); err != nil {
		c.logger.Warn("trip cache decode failed", "err", err)
		return nil, false
	}
	return trips, true
}

func (c *Cache) Set(ctx context.Context, trips []model.Trip) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(trips)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("trip cache write failed", "err", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, snapshotKey).Err(); err != nil {
		c.logger.Warn("trip cache invalidate failed", "err", err)
	}
}
