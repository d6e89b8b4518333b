package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"NAMESPACES_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "ALLOW_AUTHORITY_MIGRATION", "TX_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "namespaces.events", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.True(t, cfg.Registry.AllowAuthorityMigration)
	assert.Equal(t, "https://nft.cardinal.so/metadata", cfg.Registry.MetadataBaseURL)
	assert.Equal(t, "cardinal", cfg.Registry.PaymentManager)
	assert.NotEmpty(t, cfg.JWTSigningKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NAMESPACES_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("ALLOW_AUTHORITY_MIGRATION", "false")
	t.Setenv("RESOLVER_CACHE_TTL", "30s")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Registry.AllowAuthorityMigration)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}
