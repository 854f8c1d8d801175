package payment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CommandReconcileIntent — команда платёжному сервису пересчитать намерение.
const CommandReconcileIntent = "payment.intent.reconcile"

// EventPublisher публикует сообщение в брокер.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// ReconcileCommand — тело команды сверки платёжного намерения.
type ReconcileCommand struct {
	Command         string    `json:"command"`
	PaymentIntentID string    `json:"payment_intent_id"`
	RequestedAt     time.Time `json:"requested_at"`
}

// KafkaService передаёт сверку платёжного намерения платёжному сервису
// командой в Kafka. Ключ сообщения — ID намерения, чтобы команды одного
// намерения шли в одну партицию по порядку.
type KafkaService struct {
	publisher EventPublisher
	topic     string
	logger    *log.Entry
	now       func() time.Time
}

var _ domain.PaymentService = (*KafkaService)(nil)

// NewKafkaService создаёт PaymentService поверх Kafka.
func NewKafkaService(publisher EventPublisher, topic string, logger *log.Entry) *KafkaService {
	if logger == nil {
		logger = log.WithField("component", "payment-kafka")
	}
	return &KafkaService{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *KafkaService) ReconcilePaymentIntent(ctx context.Context, paymentIntentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if paymentIntentID == "" {
		return domain.ErrPaymentIntentRequired
	}

	cmd := ReconcileCommand{
		Command:         CommandReconcileIntent,
		PaymentIntentID: paymentIntentID,
		RequestedAt:     s.now().UTC(),
	}
	if err := s.publisher.PublishEvent(s.topic, paymentIntentID, cmd); err != nil {
		return fmt.Errorf("publish reconcile command: %w", err)
	}

	s.logger.WithField("payment_intent_id", paymentIntentID).Debug("reconcile command published")
	return nil
}
