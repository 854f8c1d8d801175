package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает состояние оплаты заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaymentReceived — платёжный провайдер подтвердил оплату.
	OrderStatusPaymentReceived OrderStatus = "payment_received"
	// OrderStatusPaymentFailed — платёж отклонён.
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

// Имена полей и связей заказа.
const (
	OrderFieldBuyerEmail      = "buyer_email"
	OrderFieldOrderDate       = "order_date"
	OrderFieldStatus          = "status"
	OrderFieldPaymentIntentID = "payment_intent_id"

	// OrderIncludeItems подгружает позиции заказа.
	OrderIncludeItems = "items"
	// OrderIncludeDeliveryMethod подгружает способ доставки.
	OrderIncludeDeliveryMethod = "delivery_method"
)

// Address — адрес доставки, копируется в заказ целиком.
type Address struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Street    string `json:"street" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state"`
	Country   string `json:"country" validate:"required"`
	ZipCode   string `json:"zip_code" validate:"required"`
}

// ProductItemOrdered — снимок товара на момент оформления.
// Последующие изменения каталога на заказ не влияют.
type ProductItemOrdered struct {
	ProductItemID int64
	ProductName   string
	PictureURL    string
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID          int64
	ItemOrdered ProductItemOrdered
	// Price — цена каталога на момент оформления.
	Price    decimal.Decimal
	Quantity int
}

// LineTotal возвращает price * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order агрегирует заказ покупателя. Позиции неизменяемы после сохранения.
type Order struct {
	ID               int64
	BuyerEmail       string
	OrderDate        time.Time
	ShipToAddress    Address
	DeliveryMethodID int64
	// DeliveryMethod заполняется только при явной подгрузке связи.
	DeliveryMethod  *DeliveryMethod
	Items           []OrderItem
	Subtotal        decimal.Decimal
	Status          OrderStatus
	PaymentIntentID string
}

// NewOrder собирает новый заказ в статусе pending.
func NewOrder(
	items []OrderItem,
	buyerEmail string,
	shipTo Address,
	deliveryMethod *DeliveryMethod,
	subtotal decimal.Decimal,
	paymentIntentID string,
	orderDate time.Time,
) *Order {
	order := &Order{
		BuyerEmail:      buyerEmail,
		OrderDate:       orderDate.UTC(),
		ShipToAddress:   shipTo,
		Items:           append([]OrderItem(nil), items...),
		Subtotal:        subtotal,
		Status:          OrderStatusPending,
		PaymentIntentID: paymentIntentID,
	}
	if deliveryMethod != nil {
		order.DeliveryMethodID = deliveryMethod.ID
		dm := *deliveryMethod
		order.DeliveryMethod = &dm
	}
	return order
}

// Total возвращает subtotal плюс стоимость доставки.
// Без подгруженного способа доставки возвращается subtotal.
func (o *Order) Total() decimal.Decimal {
	if o.DeliveryMethod == nil {
		return o.Subtotal
	}
	return o.Subtotal.Add(o.DeliveryMethod.Price)
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.BuyerEmail == "" {
		errs = append(errs, ErrBuyerEmailRequired)
	}
	if o.PaymentIntentID == "" {
		errs = append(errs, ErrPaymentIntentRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.Subtotal.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем subtotal с суммой позиций: price * quantity.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.LineTotal())
	}
	if !calc.Equal(o.Subtotal) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// OwnedRows возвращает количество дочерних строк (позиций), сохраняемых вместе с заказом.
func (o *Order) OwnedRows() int {
	return len(o.Items)
}

func (o *Order) GetID() int64    { return o.ID }
func (o *Order) SetID(id int64) { o.ID = id }

func (o *Order) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return o.ID, true
	case OrderFieldBuyerEmail:
		return o.BuyerEmail, true
	case OrderFieldOrderDate:
		return o.OrderDate, true
	case OrderFieldStatus:
		return string(o.Status), true
	case OrderFieldPaymentIntentID:
		return o.PaymentIntentID, true
	default:
		return nil, false
	}
}

func (o *Order) Clone() Entity {
	c := *o
	if o.Items != nil {
		c.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.DeliveryMethod != nil {
		dm := *o.DeliveryMethod
		c.DeliveryMethod = &dm
	}
	return &c
}
