// Package storage описывает контракт сессии хранения, поверх которой
// работают репозитории и единица работы.
package storage

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
)

// Table — имя таблицы/коллекции сущностей.
type Table string

const (
	TableProducts        Table = "products"
	TableDeliveryMethods Table = "delivery_methods"
	TableOrders          Table = "orders"
	TableOutboxMessages  Table = "outbox_messages"
)

// Query — запрос к таблице. Сессия обязана применять этапы строго в порядке
// фильтр -> подгрузка связей -> сортировка -> пагинация.
type Query struct {
	Table   Table
	Where   []spec.Condition
	Include []string
	OrderBy *spec.Ordering
	Page    *spec.Paging
}

// ChangeKind — вид отложенного изменения.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota + 1
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change — изменение, накопленное в сессии до фиксации.
type Change struct {
	Kind   ChangeKind
	Table  Table
	Entity domain.Entity
}

// Session — единая сессия хранения: читает зафиксированное состояние
// и накапливает изменения до SaveChanges. Сессия принадлежит одному
// владельцу и не предназначена для конкурентного использования.
type Session interface {
	// Find возвращает копии сущностей, удовлетворяющих запросу.
	Find(ctx context.Context, q Query) ([]domain.Entity, error)
	// Count возвращает количество строк, подходящих под фильтр.
	Count(ctx context.Context, table Table, where []spec.Condition) (int, error)
	// Stage откладывает изменение до SaveChanges.
	Stage(change Change) error
	// SaveChanges атомарно применяет все отложенные изменения и возвращает
	// число затронутых строк. При ошибке не применяется ничего.
	SaveChanges(ctx context.Context) (int, error)
	// Close освобождает сессию; отложенные изменения отбрасываются.
	Close() error
}

// SessionFactory открывает новую сессию на запрос.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Aggregate — сущность, владеющая дочерними строками (например, позициями заказа).
type Aggregate interface {
	OwnedRows() int
}

// AffectedRows возвращает количество строк, которые затрагивает запись сущности.
func AffectedRows(e domain.Entity) int {
	if a, ok := e.(Aggregate); ok {
		return 1 + a.OwnedRows()
	}
	return 1
}
