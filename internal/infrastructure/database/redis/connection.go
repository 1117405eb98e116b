// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/config"
)

const (
	connectAttempts = 3
	connectBackoff  = 500 * time.Millisecond
	pingTimeout     = 3 * time.Second
)

// Client holds the go-redis client shared by cart storage and rate limiting
type Client struct {
	Redis *redis.Client
}

// Options maps RedisConfig onto go-redis options
func Options(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// NewConnection dials Redis and waits until it answers a PING. A Redis that
// is still starting gets a few attempts before startup fails.
func NewConnection(cfg *config.Config, logger logrus.FieldLogger) (*Client, error) {
	client := &Client{Redis: redis.NewClient(Options(cfg))}
	log := logger.WithField("addr", cfg.GetRedisAddr())

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = client.Health(); err == nil {
			log.Info("Redis connection established")
			return client, nil
		}
		log.WithError(err).WithField("attempt", attempt).Warn("Redis not reachable")
		if attempt < connectAttempts {
			time.Sleep(time.Duration(attempt) * connectBackoff)
		}
	}

	_ = client.Redis.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.GetRedisAddr(), err)
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.Redis.Close()
}

// GetClient returns the Redis client instance
func (c *Client) GetClient() *redis.Client {
	return c.Redis
}

// Health pings Redis
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return c.Redis.Ping(ctx).Err()
}
