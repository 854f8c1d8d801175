package domain

// Типы событий заказа, публикуемых через outbox.
const (
	AggregateTypeOrder = "order"

	EventTypeOrderCreated         = "order.created"
	EventTypeOrderSuperseded      = "order.superseded"
	EventTypeOrderPaymentReceived = "order.payment_received"
	EventTypeOrderPaymentFailed   = "order.payment_failed"
)
