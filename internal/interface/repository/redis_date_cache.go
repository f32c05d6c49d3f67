package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/domain/repository"
	"farewatch-service/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisDatePriceCache keeps the cheapest-date scan result per route and month
type RedisDatePriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDatePriceCache creates a cache whose entries expire after ttl
func NewRedisDatePriceCache(rdb *redis.Client, ttl time.Duration) repository.DatePriceCache {
	return &RedisDatePriceCache{rdb: rdb, ttl: ttl}
}

func datePriceKey(origin, dest string, month time.Time) string {
	return fmt.Sprintf("farewatch:dates:%s:%s:%s", origin, dest, month.Format(utils.MONTH_LAYOUT))
}

// Get returns the cached entry, found=false on a miss
func (c *RedisDatePriceCache) Get(ctx context.Context, origin, dest string, month time.Time) (*entity.DatePrice, bool, error) {
	raw, err := c.rdb.Get(ctx, datePriceKey(origin, dest, month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var dp entity.DatePrice
	if err := json.Unmarshal(raw, &dp); err != nil {
		return nil, false, fmt.Errorf("decoding cached date price: %w", err)
	}
	return &dp, true, nil
}

// Set stores the entry with the configured TTL
func (c *RedisDatePriceCache) Set(ctx context.Context, origin, dest string, month time.Time, dp *entity.DatePrice) error {
	raw, err := json.Marshal(dp)
	if err != nil {
		return fmt.Errorf("encoding date price: %w", err)
	}
	if err := c.rdb.Set(ctx, datePriceKey(origin, dest, month), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
