package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/repository"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies содержит зависимости, выбранные по конфигурации.
type runtimeDependencies struct {
	uows        repository.Factory
	baskets     domain.BasketStore
	storagePing func(ctx context.Context) error
	basketPing  func(ctx context.Context) error
	closeFn     func() error
}

// Close освобождает соединения с хранилищами.
func (d *runtimeDependencies) Close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// initRuntimeDependencies открывает хранилище заказов и хранилище корзин.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &runtimeDependencies{}
	var closers []func() error

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		db := memory.NewDatabase()
		deps.uows = repository.NewFactory(db)
		deps.storagePing = db.Ping
		logger.Info("using in-memory order storage")
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("STOREFRONT_POSTGRES_DSN is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		deps.uows = repository.NewFactory(store)
		deps.storagePing = store.Ping
		closers = append(closers, store.Close)
		logger.Info("using postgres order storage")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	switch cfg.BasketDriver {
	case BasketDriverMemory, "":
		deps.baskets = memory.NewBasketStore()
		deps.basketPing = func(context.Context) error { return nil }
	case BasketDriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := redisstore.NewBasketStore(client, cfg.BasketTTL)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			closeAll(closers)
			return nil, fmt.Errorf("connect redis basket store: %w", err)
		}
		deps.baskets = store
		deps.basketPing = store.Ping
		closers = append(closers, client.Close)
		logger.WithField("addr", cfg.RedisAddr).Info("using redis basket store")
	default:
		closeAll(closers)
		return nil, fmt.Errorf("unsupported basket driver %q", cfg.BasketDriver)
	}

	deps.closeFn = func() error { return closeAll(closers) }
	return deps, nil
}

// closeAll закрывает ресурсы в обратном порядке открытия.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newPaymentService возвращает платёжный коллаборатор под circuit breaker.
func newPaymentService(cfg Config, producer *kafka.Producer, logger *log.Entry) domain.PaymentService {
	next := newPaymentBackend(producer, logger)

	settings := payment.DefaultBreakerSettings()
	if cfg.PaymentBreakerTimeout > 0 {
		settings.OpenTimeout = cfg.PaymentBreakerTimeout
	}
	return payment.NewBreakerService(next, settings, logger)
}

// newPaymentBackend выбирает провайдера: команды в Kafka или no-op без брокеров.
func newPaymentBackend(producer *kafka.Producer, logger *log.Entry) domain.PaymentService {
	if producer == nil {
		return payment.NewNoopService(logger.WithField("layer", "payment"))
	}
	return payment.NewKafkaService(producer, kafka.TopicPaymentCommands, logger.WithField("layer", "payment"))
}
