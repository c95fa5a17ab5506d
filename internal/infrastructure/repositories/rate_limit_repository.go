package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// RateLimitRedisRepository keeps one INCR counter per caller and window. Counters outlive
// their window by one extra window so a late reset header still finds them.
type RateLimitRedisRepository struct {
	r      redis.Cmdable
	prefix string
}

func NewRateLimitRedisRepository(r redis.Cmdable, prefix string) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r, prefix: prefix}
}

var _ ports.RateLimitRepository = (*RateLimitRedisRepository)(nil)

func (repo *RateLimitRedisRepository) counterKey(key string, windowStart time.Time) string {
	return repo.prefix + ":" + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

func (repo *RateLimitRedisRepository) IncrementWindow(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	windowStart := now.Truncate(window)
	counter := repo.counterKey(key, windowStart)

	var incr *redis.IntCmd
	_, err := repo.r.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, counter)
		pipe.Expire(ctx, counter, 2*window)
		return nil
	})
	if err != nil {
		return 0, windowStart, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return int(incr.Val()), windowStart, nil
}
