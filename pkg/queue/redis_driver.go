package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisQueueKey = "shopkart:queue:jobs"

// RedisDriver keeps jobs in a Redis list shared by every worker process:
// LPUSH on dispatch, BRPOP on consume.
type RedisDriver struct {
	rdb     *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisDriver shares the client opened by pkg/cache.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, key: redisQueueKey, timeout: 5 * time.Second}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop waits up to the driver timeout. An empty wait or a cancelled ctx
// returns (nil, nil) so the worker loop can re-check its context.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	kv, err := d.rdb.BRPop(ctx, d.timeout, d.key).Result()
	switch {
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	case len(kv) != 2:
		return nil, nil
	}
	return []byte(kv[1]), nil
}
