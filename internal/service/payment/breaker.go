package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrUnavailable — платёжный провайдер временно отключён предохранителем.
var ErrUnavailable = errors.New("payment service unavailable")

// BreakerSettings задаёт поведение предохранителя.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures — число подряд идущих ошибок до размыкания.
	ConsecutiveFailures uint32
	// OpenTimeout — сколько предохранитель остаётся разомкнутым.
	OpenTimeout time.Duration
	// HalfOpenRequests — пробные запросы в полуоткрытом состоянии.
	HalfOpenRequests uint32
}

// DefaultBreakerSettings возвращает значения по умолчанию.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "payment-service",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// BreakerService оборачивает PaymentService предохранителем,
// чтобы недоступный провайдер не задерживал каждое оформление.
type BreakerService struct {
	next    domain.PaymentService
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *log.Entry
}

var _ domain.PaymentService = (*BreakerService)(nil)

// NewBreakerService создаёт декоратор с предохранителем.
func NewBreakerService(next domain.PaymentService, settings BreakerSettings, logger *log.Entry) *BreakerService {
	if logger == nil {
		logger = log.WithField("component", "payment-breaker")
	}
	defaults := DefaultBreakerSettings()
	if settings.Name == "" {
		settings.Name = defaults.Name
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = defaults.ConsecutiveFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = defaults.HalfOpenRequests
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("payment circuit breaker state changed")
		},
	})

	return &BreakerService{next: next, breaker: breaker, logger: logger}
}

// ReconcilePaymentIntent вызывает провайдера, пока предохранитель замкнут.
func (s *BreakerService) ReconcilePaymentIntent(ctx context.Context, paymentIntentID string) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.ReconcilePaymentIntent(ctx, paymentIntentID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// State возвращает текущее состояние предохранителя.
func (s *BreakerService) State() gobreaker.State {
	return s.breaker.State()
}
