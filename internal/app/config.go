package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	BasketDriverMemory = "memory"
	BasketDriverRedis  = "redis"
)

// Config описывает настройки запуска приложения.
// Значения читаются из переменных окружения, envDefault задаёт значения по умолчанию.
type Config struct {
	GRPCAddr    string `env:"STOREFRONT_GRPC_ADDR" envDefault:":50051"`
	MetricsAddr string `env:"STOREFRONT_METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`

	StorageDriver       string `env:"STOREFRONT_STORAGE_DRIVER" envDefault:"memory"`
	PostgresDSN         string `env:"STOREFRONT_POSTGRES_DSN"`
	PostgresAutoMigrate bool   `env:"STOREFRONT_POSTGRES_AUTO_MIGRATE" envDefault:"true"`

	BasketDriver  string        `env:"STOREFRONT_BASKET_DRIVER" envDefault:"memory"`
	RedisAddr     string        `env:"STOREFRONT_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"STOREFRONT_REDIS_PASSWORD"`
	RedisDB       int           `env:"STOREFRONT_REDIS_DB" envDefault:"0"`
	BasketTTL     time.Duration `env:"STOREFRONT_BASKET_TTL" envDefault:"720h"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaGroupID string `env:"STOREFRONT_KAFKA_GROUP_ID" envDefault:"storefront-order-service"`

	OutboxPollInterval time.Duration `env:"STOREFRONT_OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"STOREFRONT_OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxAttempts  int           `env:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" envDefault:"3"`
	OutboxRetryDelay   time.Duration `env:"STOREFRONT_OUTBOX_RETRY_DELAY" envDefault:"50ms"`
	OutboxMaxPending   int           `env:"STOREFRONT_OUTBOX_MAX_PENDING" envDefault:"1000"`

	PaymentBreakerTimeout time.Duration `env:"STOREFRONT_PAYMENT_BREAKER_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig возвращает конфигурацию со значениями по умолчанию.
func DefaultConfig() Config {
	cfg, err := LoadConfigFrom(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return cfg
}

// LoadConfig читает конфигурацию из окружения процесса.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(nil)
}

// LoadConfigFrom читает конфигурацию из переданного окружения.
// nil означает окружение процесса.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.BasketDriver = strings.ToLower(strings.TrimSpace(c.BasketDriver))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.KafkaBrokers = strings.TrimSpace(c.KafkaBrokers)
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("STOREFRONT_POSTGRES_DSN is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	switch c.BasketDriver {
	case BasketDriverMemory:
	case BasketDriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("STOREFRONT_REDIS_ADDR is required for basket driver %q", c.BasketDriver)
		}
	default:
		return fmt.Errorf("unsupported basket driver %q", c.BasketDriver)
	}

	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive, got %s", c.OutboxPollInterval)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("outbox max attempts must be positive, got %d", c.OutboxMaxAttempts)
	}
	if c.OutboxRetryDelay < 0 {
		return fmt.Errorf("outbox retry delay must be non-negative, got %s", c.OutboxRetryDelay)
	}
	return nil
}

// Brokers возвращает список Kafka-брокеров без пустых элементов.
func (c Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
