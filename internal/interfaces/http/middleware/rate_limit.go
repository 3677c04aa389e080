// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
)

// RateLimit implements per-IP rate limiting backed by Redis. If Redis is
// unavailable the request is allowed through.
func RateLimit(cfg *config.Config, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		current, err := redisClient.Get(ctx, key).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}

		if current >= cfg.Security.RateLimitPerMinute {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		pipe := redisClient.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Minute)
		_, _ = pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Security.RateLimitPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Security.RateLimitPerMinute-current-1))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

		c.Next()
	}
}
