package domain

import "github.com/shopspring/decimal"

// Имена полей каталога.
const (
	ProductFieldName             = "name"
	ProductFieldPrice            = "price"
	DeliveryMethodFieldShortName = "short_name"
	DeliveryMethodFieldPrice     = "price"
)

// Product — товар каталога. Цена в заказ копируется отсюда, а не из корзины.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	PictureURL  string
}

func (p *Product) GetID() int64    { return p.ID }
func (p *Product) SetID(id int64) { p.ID = id }

func (p *Product) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return p.ID, true
	case ProductFieldName:
		return p.Name, true
	case ProductFieldPrice:
		return p.Price, true
	default:
		return nil, false
	}
}

func (p *Product) Clone() Entity {
	c := *p
	return &c
}

// DeliveryMethod — способ доставки с фиксированной ценой.
type DeliveryMethod struct {
	ID           int64
	ShortName    string
	DeliveryTime string
	Description  string
	Price        decimal.Decimal
}

func (d *DeliveryMethod) GetID() int64    { return d.ID }
func (d *DeliveryMethod) SetID(id int64) { d.ID = id }

func (d *DeliveryMethod) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return d.ID, true
	case DeliveryMethodFieldShortName:
		return d.ShortName, true
	case DeliveryMethodFieldPrice:
		return d.Price, true
	default:
		return nil, false
	}
}

func (d *DeliveryMethod) Clone() Entity {
	c := *d
	return &c
}
