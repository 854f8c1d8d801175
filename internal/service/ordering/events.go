package ordering

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrderEventPayload — тело событий заказа в outbox.
// OrderID равен 0 для order.created: ID назначается только при фиксации,
// поэтому событие связывается с заказом через payment_intent_id.
type OrderEventPayload struct {
	OrderID          int64           `json:"order_id,omitempty"`
	PaymentIntentID  string          `json:"payment_intent_id"`
	BuyerEmail       string          `json:"buyer_email"`
	Status           string          `json:"status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Total            decimal.Decimal `json:"total"`
	DeliveryMethodID int64           `json:"delivery_method_id,omitempty"`
	ItemCount        int             `json:"item_count"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

func newOrderEventPayload(order *domain.Order, occurredAt time.Time) OrderEventPayload {
	items := 0
	for _, item := range order.Items {
		items += item.Quantity
	}
	return OrderEventPayload{
		OrderID:          order.ID,
		PaymentIntentID:  order.PaymentIntentID,
		BuyerEmail:       order.BuyerEmail,
		Status:           string(order.Status),
		Subtotal:         order.Subtotal,
		Total:            order.Total(),
		DeliveryMethodID: order.DeliveryMethodID,
		ItemCount:        items,
		OccurredAt:       occurredAt.UTC(),
	}
}

// newOrderEvent собирает сообщение outbox для события заказа.
func newOrderEvent(eventType string, order *domain.Order, now time.Time) (*domain.OutboxMessage, error) {
	data, err := json.Marshal(newOrderEventPayload(order, now))
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &domain.OutboxMessage{
		EventID:       uuid.NewString(),
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.PaymentIntentID,
		EventType:     eventType,
		Payload:       data,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}
