package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg := Load()
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 10, cfg.MaxSeatsPerHold)
	assert.Equal(t, 30*time.Second, cfg.HoldSweepInterval)
	assert.Equal(t, 4*time.Hour, cfg.ShowCompleteAfter)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "MySQL")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "showtime")
	t.Setenv("HOLD_TTL", "90s")
	t.Setenv("MAX_SEATS_PER_HOLD", "0")
	t.Setenv("AMQP_URL", "amqp://broker/")

	cfg := Load()
	assert.Equal(t, StorageMySQL, cfg.StorageDriver)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, 90*time.Second, cfg.HoldTTL)
	assert.Equal(t, 1, cfg.MaxSeatsPerHold)
	assert.Equal(t, "amqp://broker/", cfg.RabbitMQURL)
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}
