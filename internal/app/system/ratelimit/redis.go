package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLimiter is a fixed-window limiter shared by every instance that
// talks to the same Redis. Redis errors let the request through.
type RedisLimiter struct {
	rdb      redis.Cmdable
	prefix   string
	limit    int64
	duration time.Duration
	logger   *zap.Logger
}

// NewRedis returns a limiter storing counters under prefix.
func NewRedis(rdb redis.Cmdable, prefix string, limit int, duration time.Duration, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: int64(limit), duration: duration, logger: logger}
}

// Allow increments the counter for key and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	k := l.prefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Warn("redis rate limit failed; allowing request",
			zap.String("key", k),
			zap.Error(err))
		return true
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.duration).Err(); err != nil {
			l.logger.Warn("redis rate limit expire failed", zap.String("key", k), zap.Error(err))
		}
	}
	return n <= l.limit
}

// Reset deletes the counter for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) {
	if err := l.rdb.Del(ctx, l.prefix+key).Err(); err != nil {
		l.logger.Warn("redis rate limit reset failed",
			zap.String("key", l.prefix+key),
			zap.Error(err))
	}
}

// NewRedisLoginLimiter builds a LoginLimiter on Redis with the same windows
// as NewMemoryLoginLimiter.
func NewRedisLoginLimiter(rdb redis.Cmdable, limit int, logger *zap.Logger) *LoginLimiter {
	if limit <= 0 {
		limit = defaultIPLimit
	}
	return NewLoginLimiter(
		NewRedis(rdb, "supportdesk:login:", limit, ipWindow, logger),
		NewRedis(rdb, "supportdesk:login:", emailLimit, emailWindow, logger),
	)
}
