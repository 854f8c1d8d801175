package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	gracefulStopTimeout = 5 * time.Second
	statsTimeout        = 2 * time.Second
)

// Run поднимает сервис оформления заказов и блокируется до отмены ctx
// или ошибки gRPC сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Kafka опциональна: без брокеров сверка платежей не выполняется
	// и без relay outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.Brokers(), logger)
	defer closeKafka(kafkaProducer, logger)

	payments := newPaymentService(cfg, kafkaProducer, logger)
	orders := ordering.NewService(
		deps.uows,
		deps.baskets,
		payments,
		ordering.WithLogger(logger.WithField("layer", "ordering")),
		ordering.WithMetrics(metrics.NewOrderMetrics()),
	)

	worker := newOutboxWorker(cfg, deps, kafkaProducer, logger)
	go worker.Run(runCtx)

	kafkaConsumer, _ := initKafkaConsumer(cfg.Brokers(), cfg.KafkaGroupID, map[string]kafka.MessageHandler{
		kafka.TopicCheckoutRequests: kafka.NewCheckoutHandler(orders, logger.WithField("layer", "checkout-consumer")),
		kafka.TopicPaymentEvents:    kafka.NewPaymentHandler(orders, logger.WithField("layer", "payment-consumer")),
	}, kafkaProducer, logger)
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Start(runCtx); err != nil {
			logger.WithError(err).Warn("failed to start kafka consumer")
		}
		defer stopKafkaConsumer(kafkaConsumer, logger)
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	// reflection нужен grpcurl
	reflection.Register(grpcServer)

	healthHandler := newHealthHandler(cfg, deps, worker)
	metricsSrv := startMetricsServer(runCtx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newOutboxWorker собирает relay outbox. Без producer worker не публикует
// сообщения и используется только для статистики backlog.
func newOutboxWorker(cfg Config, deps *runtimeDependencies, producer *kafka.Producer, logger *log.Entry) *outbox.Worker {
	options := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if producer == nil {
		return outbox.NewWorker(deps.uows, nil, options...)
	}

	options = append(options, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)))
	return outbox.NewWorker(deps.uows, kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents), options...)
}

// newHealthHandler регистрирует проверки хранилищ и backlog outbox.
func newHealthHandler(cfg Config, deps *runtimeDependencies, worker *outbox.Worker) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.GetVersion())
	handler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", deps.storagePing, healthcheck.DefaultPingTimeout))
	handler.RegisterChecker("basket", healthcheck.NewPingChecker("basket", deps.basketPing, healthcheck.DefaultPingTimeout))
	if cfg.OutboxMaxPending > 0 && worker != nil {
		handler.RegisterChecker("outbox", healthcheck.NewThresholdChecker("outbox", func() (int, error) {
			ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
			defer cancel()
			stats, err := worker.Stats(ctx)
			if err != nil {
				return 0, err
			}
			return stats.PendingCount, nil
		}, cfg.OutboxMaxPending))
	}
	return handler
}

// stopGRPC ждёт GracefulStop не дольше gracefulStopTimeout.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(gracefulStopTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startMetricsServer запускает HTTP-сервер с /metrics и health endpoints.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulStopTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
