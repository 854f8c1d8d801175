package domain

import "github.com/shopspring/decimal"

// BasketItem — строка корзины. Цена здесь информационная,
// при оформлении заказа используется цена каталога.
type BasketItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	PictureURL  string          `json:"picture_url"`
}

// CustomerBasket — корзина покупателя во внешнем хранилище.
type CustomerBasket struct {
	ID               string          `json:"id"`
	Items            []BasketItem    `json:"items"`
	DeliveryMethodID int64           `json:"delivery_method_id,omitempty"`
	ClientSecret     string          `json:"client_secret,omitempty"`
	PaymentIntentID  string          `json:"payment_intent_id,omitempty"`
	ShippingPrice    decimal.Decimal `json:"shipping_price"`
}
