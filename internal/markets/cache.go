package markets

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/oddspool/oddspool-backend/internal/pricing"
)

// PoolCache holds short-lived copies of pool sums for display quotes. Placement never reads it.
type PoolCache interface {
	Get(ctx context.Context, marketID uuid.UUID) (pricing.Pool, bool, error)
	Set(ctx context.Context, marketID uuid.UUID, pool pricing.Pool) error
	Invalidate(ctx context.Context, marketID uuid.UUID) error
}

type hashStore interface {
	HSetWithTTL(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	PoolKey(marketID string) string
}

type redisPoolCache struct {
	store hashStore
	ttl   time.Duration
}

// NewRedisPoolCache stores pool sums as a redis hash per market.
func NewRedisPoolCache(store hashStore, ttl time.Duration) PoolCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &redisPoolCache{store: store, ttl: ttl}
}

func (c *redisPoolCache) Get(ctx context.Context, marketID uuid.UUID) (pricing.Pool, bool, error) {
	vals, err := c.store.HGetAll(ctx, c.store.PoolKey(marketID.String()))
	if err != nil {
		return pricing.Pool{}, false, err
	}
	yesRaw, okYes := vals["yes"]
	noRaw, okNo := vals["no"]
	if !okYes || !okNo {
		return pricing.Pool{}, false, nil
	}
	yes, err := strconv.ParseInt(yesRaw, 10, 64)
	if err != nil {
		return pricing.Pool{}, false, nil
	}
	no, err := strconv.ParseInt(noRaw, 10, 64)
	if err != nil {
		return pricing.Pool{}, false, nil
	}
	return pricing.Pool{Yes: yes, No: no}, true, nil
}

func (c *redisPoolCache) Set(ctx context.Context, marketID uuid.UUID, pool pricing.Pool) error {
	return c.store.HSetWithTTL(ctx, c.store.PoolKey(marketID.String()), map[string]any{
		"yes": pool.Yes,
		"no":  pool.No,
	}, c.ttl)
}

func (c *redisPoolCache) Invalidate(ctx context.Context, marketID uuid.UUID) error {
	return c.store.Del(ctx, c.store.PoolKey(marketID.String()))
}
