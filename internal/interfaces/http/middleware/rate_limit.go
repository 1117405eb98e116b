// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimit allows limit requests per client IP per minute, counted in Redis.
// Requests are let through when Redis is unavailable.
func RateLimit(limit int, redisClient *redis.Client, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || redisClient == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			logger.WithError(err).Warn("Rate limiter unavailable")
			c.Next()
			return
		}
		if count == 1 {
			// First hit opens the window
			if err := redisClient.Expire(ctx, key, time.Minute).Err(); err != nil {
				logger.WithError(err).Warn("Failed to set rate limit window")
			}
		}

		current := int(count)
		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

		if current > limit {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
