package domain

import "github.com/vladislavdragonenkov/storefront/internal/spec"

// OrderByPaymentIntent ищет заказ по платёжному намерению вместе с позициями
// и способом доставки. Используется при сверке повторного оформления.
func OrderByPaymentIntent(paymentIntentID string) spec.Specification[*Order] {
	return spec.New[*Order]().
		Where(OrderFieldPaymentIntentID, paymentIntentID).
		Include(OrderIncludeItems, OrderIncludeDeliveryMethod)
}

// OrdersWithItemsForBuyer выбирает заказы покупателя, новые первыми.
func OrdersWithItemsForBuyer(buyerEmail string) spec.Specification[*Order] {
	return spec.New[*Order]().
		Where(OrderFieldBuyerEmail, buyerEmail).
		Include(OrderIncludeItems, OrderIncludeDeliveryMethod).
		OrderByDescending(OrderFieldOrderDate)
}

// OrderWithItemsForBuyer выбирает один заказ покупателя по ID.
// Заказ другого покупателя не найдётся.
func OrderWithItemsForBuyer(id int64, buyerEmail string) spec.Specification[*Order] {
	return OrdersWithItemsForBuyer(buyerEmail).Where(FieldID, id)
}

// PendingOutboxMessages выбирает самые старые неотправленные сообщения.
func PendingOutboxMessages(limit int) spec.Specification[*OutboxMessage] {
	return spec.New[*OutboxMessage]().
		Where(OutboxFieldStatus, string(OutboxStatusPending)).
		OrderBy(OutboxFieldCreatedAt).
		Page(0, limit)
}

// AllPendingOutboxMessages — фильтр без пагинации, для подсчёта backlog.
func AllPendingOutboxMessages() spec.Specification[*OutboxMessage] {
	return spec.New[*OutboxMessage]().
		Where(OutboxFieldStatus, string(OutboxStatusPending)).
		OrderBy(OutboxFieldCreatedAt)
}
