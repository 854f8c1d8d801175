package memory

import (
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

// workingCopy — копия затронутых таблиц на время одной фиксации.
type workingCopy struct {
	base    map[storage.Table]*table
	tables  map[storage.Table]*table
	itemSeq int64
}

func (w *workingCopy) table(name storage.Table) (*table, error) {
	if t, ok := w.tables[name]; ok {
		return t, nil
	}
	base, ok := w.base[name]
	if !ok {
		return nil, unknownTable(name)
	}
	t := base.clone()
	w.tables[name] = t
	return t, nil
}

// view возвращает таблицу с учётом уже применённых изменений, не копируя её.
func (w *workingCopy) view(name storage.Table) *table {
	if t, ok := w.tables[name]; ok {
		return t
	}
	return w.base[name]
}

// apply применяет одно изменение. assign присваивает идентификаторы
// исходной сущности и вызывается только после успешной фиксации.
func (w *workingCopy) apply(change storage.Change) (rows int, assign func(), err error) {
	if change.Entity == nil {
		return 0, nil, fmt.Errorf("%s %s: nil entity", change.Kind, change.Table)
	}
	t, err := w.table(change.Table)
	if err != nil {
		return 0, nil, err
	}

	switch change.Kind {
	case storage.ChangeInsert:
		return w.insert(t, change)
	case storage.ChangeUpdate:
		return w.update(t, change)
	case storage.ChangeDelete:
		return w.delete(t, change)
	default:
		return 0, nil, fmt.Errorf("unsupported change kind %d", change.Kind)
	}
}

func (w *workingCopy) insert(t *table, change storage.Change) (int, func(), error) {
	stored := change.Entity.Clone()

	id := stored.GetID()
	if id == 0 {
		t.nextID++
		id = t.nextID
	} else {
		if _, exists := t.rows[id]; exists {
			return 0, nil, fmt.Errorf("insert %s id=%d: %w", change.Table, id, storage.ErrDuplicateKey)
		}
		if id > t.nextID {
			t.nextID = id
		}
	}
	stored.SetID(id)

	var itemIDs []int64
	if order, ok := stored.(*domain.Order); ok {
		itemIDs = w.assignItemIDs(order)
		normalizeOrder(order)
	}

	if err := w.checkConstraints(change.Table, stored); err != nil {
		return 0, nil, fmt.Errorf("insert %s: %w", change.Table, err)
	}
	t.rows[id] = stored

	target := change.Entity
	assign := func() {
		target.SetID(id)
		if order, ok := target.(*domain.Order); ok {
			for i := range order.Items {
				if i < len(itemIDs) {
					order.Items[i].ID = itemIDs[i]
				}
			}
		}
	}
	return storage.AffectedRows(stored), assign, nil
}

func (w *workingCopy) update(t *table, change storage.Change) (int, func(), error) {
	id := change.Entity.GetID()
	if id == 0 {
		return 0, nil, fmt.Errorf("update %s: %w", change.Table, storage.ErrNoIdentity)
	}
	current, ok := t.rows[id]
	if !ok {
		return 0, nil, fmt.Errorf("update %s id=%d: %w", change.Table, id, storage.ErrConcurrencyConflict)
	}

	stored := change.Entity.Clone()
	keepOwnedRows(current, stored)
	if err := w.checkConstraints(change.Table, stored); err != nil {
		return 0, nil, fmt.Errorf("update %s: %w", change.Table, err)
	}
	t.rows[id] = stored
	return 1, nil, nil
}

func (w *workingCopy) delete(t *table, change storage.Change) (int, func(), error) {
	id := change.Entity.GetID()
	if id == 0 {
		return 0, nil, fmt.Errorf("delete %s: %w", change.Table, storage.ErrNoIdentity)
	}
	current, ok := t.rows[id]
	if !ok {
		return 0, nil, fmt.Errorf("delete %s id=%d: %w", change.Table, id, storage.ErrConcurrencyConflict)
	}
	delete(t.rows, id)
	return storage.AffectedRows(current), nil, nil
}

func (w *workingCopy) assignItemIDs(order *domain.Order) []int64 {
	ids := make([]int64, len(order.Items))
	for i := range order.Items {
		if order.Items[i].ID == 0 {
			w.itemSeq++
			order.Items[i].ID = w.itemSeq
		}
		ids[i] = order.Items[i].ID
	}
	return ids
}
