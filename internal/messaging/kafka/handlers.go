package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
)

// OrderCreator оформляет заказ из корзины.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in ordering.CreateOrderInput) (*domain.Order, error)
}

// PaymentStatusUpdater применяет результат оплаты к заказу.
type PaymentStatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status domain.OrderStatus) (*domain.Order, error)
}

// NewCheckoutHandler обрабатывает запросы на оформление.
// Бизнес-ошибки (валидация, отсутствующая корзина, устаревший товар) не
// исправятся повтором: сообщение логируется и подтверждается.
// Остальные ошибки возвращаются consumer'у для повтора и DLQ.
func NewCheckoutHandler(orders OrderCreator, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "checkout-handler")
	}
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		req, err := ParseCheckoutRequest(message)
		if err != nil {
			logger.WithError(err).WithField("offset", message.Offset).Error("malformed checkout request dropped")
			return nil
		}

		entry := logger.WithFields(log.Fields{
			"request_id": req.RequestID,
			"basket_id":  req.BasketID,
		})

		order, err := orders.CreateOrder(ctx, ordering.CreateOrderInput{
			BuyerEmail:       req.BuyerEmail,
			DeliveryMethodID: req.DeliveryMethodID,
			BasketID:         req.BasketID,
			ShipTo:           req.ShipTo,
		})
		switch {
		case err == nil:
			entry.WithField("order_id", order.ID).Info("checkout request processed")
			return nil
		case domain.IsPermanentCheckoutError(err):
			entry.WithError(err).Warn("checkout request rejected")
			return nil
		default:
			return fmt.Errorf("create order for basket %s: %w", req.BasketID, err)
		}
	}
}

// NewPaymentHandler обрабатывает события платёжного сервиса.
func NewPaymentHandler(payments PaymentStatusUpdater, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "payment-handler")
	}
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParsePaymentEvent(message)
		if err != nil {
			logger.WithError(err).WithField("offset", message.Offset).Error("malformed payment event dropped")
			return nil
		}

		entry := logger.WithFields(log.Fields{
			"event_type":        event.EventType,
			"payment_intent_id": event.PaymentIntentID,
		})

		status, ok := event.OrderStatus()
		if !ok {
			entry.Debug("payment event ignored")
			return nil
		}

		order, err := payments.UpdatePaymentStatus(ctx, event.PaymentIntentID, status)
		switch {
		case err == nil && order == nil:
			entry.Warn("no order for payment intent")
			return nil
		case err == nil:
			entry.WithField("order_id", order.ID).Info("payment event applied")
			return nil
		case errors.Is(err, domain.ErrInvalidOrderStatus), errors.Is(err, domain.ErrPaymentIntentRequired):
			entry.WithError(err).Warn("payment event rejected")
			return nil
		default:
			return fmt.Errorf("update payment status for %s: %w", event.PaymentIntentID, err)
		}
	}
}

// NewTopicRouter направляет сообщение в обработчик его топика.
func NewTopicRouter(routes map[string]MessageHandler, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "kafka-router")
	}
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		handler, ok := routes[message.Topic]
		if !ok {
			logger.WithField("topic", message.Topic).Warn("no handler for topic")
			return nil
		}
		return handler(ctx, message)
	}
}

// Topics возвращает топики, для которых есть маршруты.
func Topics(routes map[string]MessageHandler) []string {
	topics := make([]string, 0, len(routes))
	for topic := range routes {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
