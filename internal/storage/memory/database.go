package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

// table хранит зафиксированные строки одной таблицы.
type table struct {
	rows   map[int64]domain.Entity
	nextID int64
}

func (t *table) clone() *table {
	rows := make(map[int64]domain.Entity, len(t.rows))
	for id, row := range t.rows {
		rows[id] = row
	}
	return &table{rows: rows, nextID: t.nextID}
}

// sortedRows возвращает строки в порядке возрастания ID.
func (t *table) sortedRows() []domain.Entity {
	out := make([]domain.Entity, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetID() < out[j].GetID() })
	return out
}

// Database — in-memory хранилище для локальной разработки и тестов.
// Строки неизменяемы: запись заменяет строку целиком, поэтому снимок
// таблицы достаточно копировать поверхностно.
type Database struct {
	mu      sync.RWMutex
	tables  map[storage.Table]*table
	itemSeq int64
}

var _ storage.SessionFactory = (*Database)(nil)

// NewDatabase создаёт пустую базу со всеми известными таблицами.
func NewDatabase() *Database {
	tables := make(map[storage.Table]*table, len(knownTables))
	for _, name := range knownTables {
		tables[name] = &table{rows: make(map[int64]domain.Entity)}
	}
	return &Database{tables: tables}
}

// NewSession открывает сессию поверх базы.
func (db *Database) NewSession(_ context.Context) (storage.Session, error) {
	return &Session{db: db}, nil
}

// Ping нужен для health-проверок, in-memory база всегда доступна.
func (db *Database) Ping(context.Context) error {
	return nil
}

// find выполняет запрос над зафиксированным состоянием.
func (db *Database) find(q storage.Query) ([]domain.Entity, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[q.Table]
	if !ok {
		return nil, unknownTable(q.Table)
	}
	if err := validateIncludes(q.Table, q.Include); err != nil {
		return nil, err
	}

	rows, err := storage.Filter(t.sortedRows(), q.Where)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		rows[i] = db.materialize(q.Table, row, q.Include)
	}
	if err := storage.Sort(rows, q.OrderBy); err != nil {
		return nil, err
	}
	return storage.Paginate(rows, q.Page), nil
}

func (db *Database) count(name storage.Table, where []spec.Condition) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	if !ok {
		return 0, unknownTable(name)
	}
	rows, err := storage.Filter(t.sortedRows(), where)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// flush применяет изменения к рабочей копии и подменяет состояние
// только если все изменения применились.
func (db *Database) flush(changes []storage.Change) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	w := &workingCopy{
		base:    db.tables,
		tables:  make(map[storage.Table]*table),
		itemSeq: db.itemSeq,
	}

	total := 0
	assigns := make([]func(), 0, len(changes))
	for _, change := range changes {
		rows, assign, err := w.apply(change)
		if err != nil {
			return 0, err
		}
		total += rows
		if assign != nil {
			assigns = append(assigns, assign)
		}
	}

	for name, t := range w.tables {
		db.tables[name] = t
	}
	db.itemSeq = w.itemSeq
	for _, assign := range assigns {
		assign()
	}
	return total, nil
}
