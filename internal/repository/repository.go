// Package repository даёт типизированный доступ к сущностям через
// спецификации и группирует изменения в единицу работы.
package repository

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

// Repository — обобщённый репозиторий сущностей типа T.
// Отсутствие сущности возвращается как нулевое значение T без ошибки.
// Add/Update/Delete только откладывают изменения: фиксирует их UnitOfWork.
type Repository[T domain.Entity] interface {
	GetByID(ctx context.Context, id int64) (T, error)
	GetBySpec(ctx context.Context, s spec.Specification[T]) (T, error)
	ListAll(ctx context.Context) ([]T, error)
	List(ctx context.Context, s spec.Specification[T]) ([]T, error)
	// Count учитывает только фильтр спецификации, без пагинации.
	Count(ctx context.Context, s spec.Specification[T]) (int, error)
	Add(entity T) error
	Update(entity T) error
	Delete(entity T) error
}

// genericRepository работает поверх сессии, общей для всей единицы работы.
type genericRepository[T domain.Entity] struct {
	session storage.Session
	table   storage.Table
}

var _ Repository[*domain.Order] = (*genericRepository[*domain.Order])(nil)

func newGenericRepository[T domain.Entity](session storage.Session, table storage.Table) *genericRepository[T] {
	return &genericRepository[T]{session: session, table: table}
}

func (r *genericRepository[T]) GetByID(ctx context.Context, id int64) (T, error) {
	var zero T
	rows, err := r.find(ctx, storage.Query{
		Table: r.table,
		Where: []spec.Condition{{Field: domain.FieldID, Value: id}},
		Page:  &spec.Paging{Take: 1},
	})
	if err != nil || len(rows) == 0 {
		return zero, err
	}
	return rows[0], nil
}

// GetBySpec возвращает первое совпадение. Без пагинации в спецификации
// выборка ограничивается одной строкой.
func (r *genericRepository[T]) GetBySpec(ctx context.Context, s spec.Specification[T]) (T, error) {
	var zero T
	q := evaluate(r.table, s)
	if q.Page == nil {
		q.Page = &spec.Paging{Take: 1}
	}
	rows, err := r.find(ctx, q)
	if err != nil || len(rows) == 0 {
		return zero, err
	}
	return rows[0], nil
}

func (r *genericRepository[T]) ListAll(ctx context.Context) ([]T, error) {
	return r.find(ctx, storage.Query{Table: r.table})
}

func (r *genericRepository[T]) List(ctx context.Context, s spec.Specification[T]) ([]T, error) {
	return r.find(ctx, evaluate(r.table, s))
}

func (r *genericRepository[T]) Count(ctx context.Context, s spec.Specification[T]) (int, error) {
	count, err := r.session.Count(ctx, r.table, s.Criteria())
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table, err)
	}
	return count, nil
}

func (r *genericRepository[T]) Add(entity T) error {
	return r.stage(storage.ChangeInsert, entity)
}

// Update откладывает изменение корневой строки. Сущность без ID отклоняется сразу.
func (r *genericRepository[T]) Update(entity T) error {
	if entity.GetID() == 0 {
		return fmt.Errorf("update %s: %w", r.table, storage.ErrNoIdentity)
	}
	return r.stage(storage.ChangeUpdate, entity)
}

func (r *genericRepository[T]) Delete(entity T) error {
	if entity.GetID() == 0 {
		return fmt.Errorf("delete %s: %w", r.table, storage.ErrNoIdentity)
	}
	return r.stage(storage.ChangeDelete, entity)
}

func (r *genericRepository[T]) stage(kind storage.ChangeKind, entity T) error {
	if err := r.session.Stage(storage.Change{Kind: kind, Table: r.table, Entity: entity}); err != nil {
		return fmt.Errorf("stage %s %s: %w", kind, r.table, err)
	}
	return nil
}

func (r *genericRepository[T]) find(ctx context.Context, q storage.Query) ([]T, error) {
	rows, err := r.session.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table, err)
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		typed, ok := row.(T)
		if !ok {
			return nil, fmt.Errorf("query %s: unexpected entity type %T", r.table, row)
		}
		out = append(out, typed)
	}
	return out, nil
}

// evaluate переводит спецификацию в запрос в фиксированном порядке этапов:
// фильтр, подгрузка связей, сортировка, пагинация.
func evaluate[T domain.Entity](table storage.Table, s spec.Specification[T]) storage.Query {
	q := storage.Query{Table: table}
	q.Where = s.Criteria()
	q.Include = s.Includes()
	if ordering, ok := s.Ordering(); ok {
		q.OrderBy = &ordering
	}
	if paging, ok := s.Paging(); ok {
		q.Page = &paging
	}
	return q
}
