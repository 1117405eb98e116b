// internal/infrastructure/database/redis/cart_storage.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
)

const opTimeout = 3 * time.Second

// CartStorage persists one owner's cart in Redis under storefront:<owner>:<key>
type CartStorage struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

var _ cart.Storage = (*CartStorage)(nil)

func NewCartStorage(client *redis.Client, owner string, ttl time.Duration) *CartStorage {
	return &CartStorage{client: client, owner: owner, ttl: ttl}
}

// CartStorageFactory adapts NewCartStorage to cart.StorageFactory
func CartStorageFactory(client *redis.Client, ttl time.Duration) cart.StorageFactory {
	return func(owner string) cart.Storage {
		return NewCartStorage(client, owner, ttl)
	}
}

func (s *CartStorage) redisKey(key string) string {
	return fmt.Sprintf("storefront:%s:%s", s.owner, key)
}

func (s *CartStorage) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cart: %w", err)
	}

	// Sliding expiry: an active cart never lapses
	if s.ttl > 0 {
		s.client.Expire(ctx, s.redisKey(key), s.ttl)
	}
	return val, true, nil
}

func (s *CartStorage) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cart: %w", err)
	}
	return nil
}

func (s *CartStorage) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove cart: %w", err)
	}
	return nil
}
