package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const balanceKeyPrefix = "leave:balance:"

func BalanceKey(employeeID uint, year int) string {
	return fmt.Sprintf("%s%d:%d", balanceKeyPrefix, employeeID, year)
}

// BalanceCache stores JSON balance snapshots in Redis.
type BalanceCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewBalanceCache(rdb redis.Cmdable, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BalanceCache{rdb: rdb, ttl: ttl}
}

// Get decodes the cached snapshot into dst. It returns false on a miss.
func (c *BalanceCache) Get(ctx context.Context, employeeID uint, year int, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, BalanceKey(employeeID, year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached balance: %w", err)
	}
	return true, nil
}

func (c *BalanceCache) Set(ctx context.Context, employeeID uint, year int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, BalanceKey(employeeID, year), data, c.ttl).Err()
}

func (c *BalanceCache) Invalidate(ctx context.Context, employeeID uint, year int) error {
	return c.rdb.Del(ctx, BalanceKey(employeeID, year)).Err()
}
