package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telehealth-app-server/internal/utils"
)

const (
	// Rate limiting defaults
	defaultRateLimit  = 10               // 10 attempts
	defaultRateWindow = 15 * time.Minute // per 15 minutes
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter counts requests per client IP and path in Redis. Without a
// client, or when Redis fails, requests are let through.
func RateLimiter(rdb redis.Cmdable, config RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	if config.Limit <= 0 {
		config.Limit = defaultRateLimit
	}
	if config.Window <= 0 {
		config.Window = defaultRateWindow
	}
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		key := rateLimitKey(c.FullPath(), clientIP)

		count, err := hit(c.Request.Context(), rdb, key, config.Window)
		if err != nil {
			log.Warn("rate limit check failed, allowing request",
				zap.String("ip", clientIP),
				zap.String("key", key),
				zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(config.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(config.Limit) {
			log.Warn("rate limit exceeded", zap.String("ip", clientIP), zap.String("path", c.FullPath()))
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			utils.TooManyRequests(c, "Too many requests. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(path, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", path, clientIP)
}

// hit increments the window counter and returns the new count. Every hit
// pushes the expiry out, so a client that keeps hammering stays blocked.
func hit(ctx context.Context, rdb redis.Cmdable, key string, window time.Duration) (int64, error) {
	pipe := rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return incr.Val(), nil
}

// ResetRateLimit clears the counter of one client on one route.
func ResetRateLimit(ctx context.Context, rdb redis.Cmdable, path, clientIP string) error {
	if rdb == nil {
		return fmt.Errorf("redis not available")
	}
	return rdb.Del(ctx, rateLimitKey(path, clientIP)).Err()
}
