package domain

import "errors"

var (
	// Ошибка отсутствующего email покупателя.
	ErrBuyerEmailRequired = errors.New("buyer email is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("subtotal must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия subtotal и сумм позиций.
	ErrAmountMismatch = errors.New("order subtotal does not match items sum")
	// ErrInvalidCheckout — входные данные оформления не прошли валидацию.
	ErrInvalidCheckout = errors.New("invalid checkout request")
	// ErrBasketNotFound — корзина не найдена в хранилище корзин.
	ErrBasketNotFound = errors.New("basket not found")
	// ErrBasketEmpty — в корзине нет ни одной позиции.
	ErrBasketEmpty = errors.New("basket is empty")
	// ErrPaymentIntentRequired — у корзины нет платёжного намерения.
	ErrPaymentIntentRequired = errors.New("payment intent is required")
	// ErrStaleBasketReference — корзина ссылается на товар, которого больше нет в каталоге.
	ErrStaleBasketReference = errors.New("basket references a product that no longer exists")
	// ErrDeliveryMethodNotFound — способ доставки не найден.
	ErrDeliveryMethodNotFound = errors.New("delivery method not found")
	// ErrPaymentIntentConflict — заказ для этого платёжного намерения уже сохранён параллельно.
	ErrPaymentIntentConflict = errors.New("order for payment intent already exists")
	// ErrOrderNotPersisted — фиксация прошла без ошибки, но не затронула ни одной строки.
	ErrOrderNotPersisted = errors.New("order was not persisted")
	// ErrPaymentReconcile — платёжный провайдер не смог сверить платёжное намерение.
	ErrPaymentReconcile = errors.New("payment intent reconcile failed")
	// ErrInvalidOrderStatus — недопустимый целевой статус оплаты.
	ErrInvalidOrderStatus = errors.New("invalid order payment status")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsPermanentCheckoutError сообщает, что повтор оформления с теми же данными
// приведёт к той же ошибке.
func IsPermanentCheckoutError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidCheckout),
		errors.Is(err, ErrBasketNotFound),
		errors.Is(err, ErrBasketEmpty),
		errors.Is(err, ErrPaymentIntentRequired),
		errors.Is(err, ErrStaleBasketReference),
		errors.Is(err, ErrDeliveryMethodNotFound):
		return true
	default:
		return false
	}
}
