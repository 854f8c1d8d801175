package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.PostgresAutoMigrate)
	assert.Equal(t, BasketDriverMemory, cfg.BasketDriver)
	assert.Equal(t, 720*time.Hour, cfg.BasketTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 3, cfg.OutboxMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.OutboxRetryDelay)
	assert.Equal(t, 1000, cfg.OutboxMaxPending)
	assert.Equal(t, 30*time.Second, cfg.PaymentBreakerTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_Overrides(t *testing.T) {
	cfg, err := LoadConfigFrom(map[string]string{
		"STOREFRONT_GRPC_ADDR":             ":6000",
		"STOREFRONT_STORAGE_DRIVER":        " Postgres ",
		"STOREFRONT_POSTGRES_DSN":          "postgres://localhost/storefront",
		"STOREFRONT_POSTGRES_AUTO_MIGRATE": "false",
		"STOREFRONT_BASKET_DRIVER":         "REDIS",
		"STOREFRONT_REDIS_DB":              "2",
		"KAFKA_BROKERS":                    "kafka-1:9092, kafka-2:9092",
		"STOREFRONT_OUTBOX_POLL_INTERVAL":  "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.GRPCAddr)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.False(t, cfg.PostgresAutoMigrate)
	assert.Equal(t, BasketDriverRedis, cfg.BasketDriver)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_InvalidValue(t *testing.T) {
	_, err := LoadConfigFrom(map[string]string{"STOREFRONT_OUTBOX_BATCH_SIZE": "many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.StorageDriver = StorageDriverPostgres },
			wantErr: "STOREFRONT_POSTGRES_DSN is required",
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.StorageDriver = "sqlite" },
			wantErr: "unsupported storage driver",
		},
		{
			name: "redis without addr",
			mutate: func(c *Config) {
				c.BasketDriver = BasketDriverRedis
				c.RedisAddr = " "
			},
			wantErr: "STOREFRONT_REDIS_ADDR is required",
		},
		{
			name:    "unknown basket driver",
			mutate:  func(c *Config) { c.BasketDriver = "mongo" },
			wantErr: "unsupported basket driver",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.OutboxPollInterval = 0 },
			wantErr: "poll interval",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.OutboxBatchSize = 0 },
			wantErr: "batch size",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.OutboxMaxAttempts = 0 },
			wantErr: "max attempts",
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *Config) { c.OutboxRetryDelay = -time.Millisecond },
			wantErr: "retry delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigBrokers_Empty(t *testing.T) {
	assert.Empty(t, Config{KafkaBrokers: " , "}.Brokers())
}
