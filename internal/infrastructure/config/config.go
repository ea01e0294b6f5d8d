package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const envProduction = "production"

type Config struct {
	Port      string        `env:"PORT,       default=5000"`
	Env       string        `env:"ENV,        default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpire time.Duration `env:"JWT_EXPIRE, default=168h"`
	LogLevel  string        `env:"LOG_LEVEL,  default=info"`
	LogPretty bool          `env:"LOG_PRETTY, default=false"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin.
	CORSOrigins string `env:"CORS_ORIGINS, default=*"`

	// RequireVerifiedSellers blocks unverified sellers from creating listings.
	RequireVerifiedSellers bool `env:"REQUIRE_VERIFIED_SELLERS, default=false"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Media  MediaConfig
	Kafka  KafkaConfig
	Events EventsConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=ocandle"`
}

// RedisConfig is optional; an empty Addr keeps rate limiting in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type MediaConfig struct {
	BucketURL     string `env:"MEDIA_BUCKET_URL,      default=mem://"`
	PublicBaseURL string `env:"MEDIA_PUBLIC_BASE_URL, default=/media"`
}

// KafkaConfig is optional; without brokers order events are only logged.
type KafkaConfig struct {
	Brokers    string `env:"KAFKA_BROKERS"`
	OrderTopic string `env:"KAFKA_ORDER_TOPIC, default=order-events"`
}

type EventsConfig struct {
	Workers   int `env:"EVENT_WORKERS,     default=4"`
	QueueSize int `env:"EVENT_QUEUE_SIZE,  default=256"`
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTExpire <= 0 {
		return errors.New("JWT_EXPIRE must be positive")
	}
	if c.Events.Workers < 1 {
		return errors.New("EVENT_WORKERS must be at least 1")
	}
	return nil
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, envProduction)
}

// KafkaBrokers splits the broker list, dropping blanks.
func (c *Config) KafkaBrokers() []string {
	return splitList(c.Kafka.Brokers)
}

// AllowedOrigins splits the CORS allow list.
func (c *Config) AllowedOrigins() []string {
	origins := splitList(c.CORSOrigins)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
