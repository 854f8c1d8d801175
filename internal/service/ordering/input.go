package ordering

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CreateOrderInput — данные оформления заказа из корзины.
type CreateOrderInput struct {
	BuyerEmail       string         `json:"buyer_email" validate:"required,email"`
	DeliveryMethodID int64          `json:"delivery_method_id" validate:"gt=0"`
	BasketID         string         `json:"basket_id" validate:"required"`
	ShipTo           domain.Address `json:"ship_to"`
}

// normalize убирает пробелы по краям email и ID корзины.
func (in CreateOrderInput) normalize() CreateOrderInput {
	in.BuyerEmail = normalizeEmail(in.BuyerEmail)
	in.BasketID = strings.TrimSpace(in.BasketID)
	return in
}

// normalizeEmail приводит email покупателя к виду, в котором он хранится в заказе.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validateInput возвращает ErrInvalidCheckout с перечнем невалидных полей.
func validateInput(v *validator.Validate, in CreateOrderInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCheckout, err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidCheckout, strings.Join(fields, ", "))
}
