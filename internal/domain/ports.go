package domain

import "context"

// BasketStore — внешнее хранилище корзин.
type BasketStore interface {
	// GetBasket возвращает корзину или nil, если её нет.
	GetBasket(ctx context.Context, id string) (*CustomerBasket, error)
	UpdateBasket(ctx context.Context, basket *CustomerBasket) (*CustomerBasket, error)
	DeleteBasket(ctx context.Context, id string) error
}

// PaymentService описывает взаимодействие с платёжным провайдером.
type PaymentService interface {
	// ReconcilePaymentIntent сообщает провайдеру, что заказ по платёжному
	// намерению пересоздаётся и намерение нужно сверить (сумма могла измениться).
	ReconcilePaymentIntent(ctx context.Context, paymentIntentID string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}
