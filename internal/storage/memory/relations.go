package memory

import (
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

var knownTables = []storage.Table{
	storage.TableProducts,
	storage.TableDeliveryMethods,
	storage.TableOrders,
	storage.TableOutboxMessages,
}

// includePaths — поддерживаемые связи по таблицам.
var includePaths = map[storage.Table]map[string]struct{}{
	storage.TableOrders: {
		domain.OrderIncludeItems:          {},
		domain.OrderIncludeDeliveryMethod: {},
	},
}

func isKnownTable(name storage.Table) bool {
	for _, known := range knownTables {
		if known == name {
			return true
		}
	}
	return false
}

func unknownTable(name storage.Table) error {
	return fmt.Errorf("%w: %s", storage.ErrUnknownTable, name)
}

func validateIncludes(name storage.Table, include []string) error {
	allowed := includePaths[name]
	for _, path := range include {
		if _, ok := allowed[path]; !ok {
			return fmt.Errorf("%w: %s.%s", storage.ErrUnknownInclude, name, path)
		}
	}
	return nil
}

func hasInclude(include []string, path string) bool {
	for _, p := range include {
		if p == path {
			return true
		}
	}
	return false
}

// materialize возвращает копию строки с подгруженными связями.
// Позиции заказа отдаются только при явной подгрузке.
func (db *Database) materialize(name storage.Table, row domain.Entity, include []string) domain.Entity {
	out := row.Clone()

	order, ok := out.(*domain.Order)
	if !ok || name != storage.TableOrders {
		return out
	}
	if !hasInclude(include, domain.OrderIncludeItems) {
		order.Items = nil
	}
	order.DeliveryMethod = nil
	if hasInclude(include, domain.OrderIncludeDeliveryMethod) {
		if dm, ok := db.tables[storage.TableDeliveryMethods].rows[order.DeliveryMethodID]; ok {
			order.DeliveryMethod = dm.Clone().(*domain.DeliveryMethod)
		}
	}
	return order
}

// normalizeOrder убирает подгруженную связь: хранится только ссылка.
func normalizeOrder(order *domain.Order) {
	if order.DeliveryMethod != nil && order.DeliveryMethodID == 0 {
		order.DeliveryMethodID = order.DeliveryMethod.ID
	}
	order.DeliveryMethod = nil
}

// keepOwnedRows переносит дочерние строки из текущей версии:
// обновление меняет только корневую строку.
func keepOwnedRows(current, updated domain.Entity) {
	cur, ok := current.(*domain.Order)
	if !ok {
		return
	}
	next, ok := updated.(*domain.Order)
	if !ok {
		return
	}
	next.Items = append([]domain.OrderItem(nil), cur.Items...)
	normalizeOrder(next)
}

// checkConstraints проверяет уникальные и внешние ключи так же,
// как это делает схема PostgreSQL.
func (w *workingCopy) checkConstraints(name storage.Table, row domain.Entity) error {
	switch e := row.(type) {
	case *domain.Order:
		if e.DeliveryMethodID != 0 {
			if _, ok := w.view(storage.TableDeliveryMethods).rows[e.DeliveryMethodID]; !ok {
				return fmt.Errorf("%w: delivery method %d", storage.ErrForeignKey, e.DeliveryMethodID)
			}
		}
		if e.PaymentIntentID == "" {
			return nil
		}
		for id, other := range w.view(name).rows {
			if id == e.ID {
				continue
			}
			if other.(*domain.Order).PaymentIntentID == e.PaymentIntentID {
				return fmt.Errorf("%w: %s", domain.ErrPaymentIntentConflict, e.PaymentIntentID)
			}
		}
	case *domain.OutboxMessage:
		if e.EventID == "" {
			return nil
		}
		for id, other := range w.view(name).rows {
			if id != e.ID && other.(*domain.OutboxMessage).EventID == e.EventID {
				return fmt.Errorf("%w: outbox event %s", storage.ErrDuplicateKey, e.EventID)
			}
		}
	}
	return nil
}
