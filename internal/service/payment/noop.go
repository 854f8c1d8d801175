package payment

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// NoopService принимает любую сверку и ничего не хранит.
// Используется, когда платёжный провайдер не подключён.
type NoopService struct {
	logger *log.Entry
}

var _ domain.PaymentService = (*NoopService)(nil)

func NewNoopService(logger *log.Entry) *NoopService {
	if logger == nil {
		logger = log.WithField("component", "payment-noop")
	}
	return &NoopService{logger: logger}
}

func (s *NoopService) ReconcilePaymentIntent(ctx context.Context, paymentIntentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.WithField("payment_intent_id", paymentIntentID).Debug("payment reconcile skipped: no provider configured")
	return nil
}
