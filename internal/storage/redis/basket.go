// Package redis caches session baskets in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
)

const basketKeyPrefix = "basket:"

var _ basket.Store = (*BasketCache)(nil)

// BasketCache keeps encoded basket snapshots with a sliding TTL.
type BasketCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBasketCache returns a cache whose entries expire ttl after the last
// write. A zero ttl keeps entries forever.
func NewBasketCache(client *redis.Client, ttl time.Duration) *BasketCache {
	return &BasketCache{client: client, ttl: ttl}
}

// Load returns basket.ErrNotFound on a cache miss.
func (c *BasketCache) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := c.client.Get(ctx, basketKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, basket.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get basket %s", id)
	}
	return data, nil
}

func (c *BasketCache) Save(ctx context.Context, id string, data []byte) error {
	if err := c.client.Set(ctx, basketKeyPrefix+id, data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set basket %s", id)
	}
	return nil
}

func (c *BasketCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, basketKeyPrefix+id).Err(); err != nil {
		return errors.Wrapf(err, "del basket %s", id)
	}
	return nil
}
