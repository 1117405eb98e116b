package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
)

func redisConfig(mr *miniredis.Miniredis) *config.Config {
	return &config.Config{Redis: config.RedisConfig{
		Host:     mr.Host(),
		Port:     mr.Port(),
		DB:       2,
		PoolSize: 4,
	}}
}

func TestNewConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewConnection(redisConfig(mr), logger.Discard())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Health())
	assert.Equal(t, 2, client.GetClient().Options().DB)
}

func TestNewConnectionGivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(mr)
	mr.Close()

	client, err := NewConnection(cfg, logger.Discard())
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
