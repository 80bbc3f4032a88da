package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const listKey = "markets:list"

// Cache guarda a lista de mercados no Redis por um TTL curto, aliviando
// o store nas consultas de polling.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

func (c *Cache) GetMarkets(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, listKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetMarkets(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, listKey, b, c.TTL).Err()
}
