package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminAPIToken string
	LogLevel      string
	LogFormat     string
	TxTimeout     time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration

	Redis    RedisConfig
	Kafka    KafkaConfig
	Registry RegistryConfig
}

// RedisConfig configures the resolver cache connection. An empty URL
// disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the audit outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// RegistryConfig holds the naming service policy knobs.
type RegistryConfig struct {
	MetadataBaseURL         string
	PaymentManager          string
	AllowAuthorityMigration bool
	SeedFile                string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          getString("NAMESPACES_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     getString("JWT_ISSUER", "namespaces"),
		JWTAudience:   getString("JWT_AUDIENCE", "namespaces"),
		AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		LogFormat:     os.Getenv("LOG_FORMAT"),
		TxTimeout:     getDuration("TX_TIMEOUT", 5*time.Second),
		ReadTimeout:   getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:  getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
			CacheTTL:     getDuration("RESOLVER_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:      getList("KAFKA_BROKERS"),
			Topic:        getString("KAFKA_TOPIC", "namespaces.events"),
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Registry: RegistryConfig{
			MetadataBaseURL:         getString("METADATA_BASE_URL", "https://nft.cardinal.so/metadata"),
			PaymentManager:          getString("PAYMENT_MANAGER", "cardinal"),
			AllowAuthorityMigration: getBool("ALLOW_AUTHORITY_MIGRATION", true),
			SeedFile:                os.Getenv("NAMESPACE_SEED_FILE"),
		},
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
