package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Topics для Kafka
const (
	TopicCheckoutRequests = "storefront.checkout.requests"
	TopicPaymentEvents    = "storefront.payment.events"
	TopicOrderEvents      = "storefront.order.events"
	TopicPaymentCommands  = "storefront.payment.commands"
	TopicDeadLetterQueue  = "storefront.dlq" // Dead Letter Queue для failed messages
)

// PaymentEventType — тип события платёжного сервиса.
type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "payment.succeeded"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// CheckoutRequest — запрос на оформление заказа из корзины.
type CheckoutRequest struct {
	RequestID        string         `json:"request_id,omitempty"`
	BuyerEmail       string         `json:"buyer_email"`
	DeliveryMethodID int64          `json:"delivery_method_id"`
	BasketID         string         `json:"basket_id"`
	ShipTo           domain.Address `json:"ship_to"`
	RequestedAt      time.Time      `json:"requested_at"`
}

// PaymentEvent — результат оплаты от платёжного сервиса.
type PaymentEvent struct {
	EventType       PaymentEventType `json:"event_type"`
	PaymentIntentID string           `json:"payment_intent_id"`
	Reason          string           `json:"reason,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// OrderStatus переводит тип платёжного события в статус заказа.
func (e PaymentEvent) OrderStatus() (domain.OrderStatus, bool) {
	switch e.EventType {
	case PaymentEventSucceeded:
		return domain.OrderStatusPaymentReceived, true
	case PaymentEventFailed:
		return domain.OrderStatusPaymentFailed, true
	default:
		return "", false
	}
}

// DeadLetter — сообщение, не обработанное после всех попыток.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	RetryCount        int    `json:"retry_count"`
}

// OutboxEnvelope — формат сообщения, которое outbox публикует в TopicOrderEvents.
type OutboxEnvelope struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewOutboxEnvelope оборачивает сообщение outbox для публикации.
func NewOutboxEnvelope(msg domain.OutboxMessage, publishedAt time.Time) OutboxEnvelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return OutboxEnvelope{
		EventID:       msg.EventID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		OccurredAt:    msg.CreatedAt.UTC(),
		PublishedAt:   publishedAt.UTC(),
	}
}
