package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
)

// Filter оставляет сущности, у которых все условия выполняются.
func Filter(rows []domain.Entity, where []spec.Condition) ([]domain.Entity, error) {
	if len(where) == 0 {
		return rows, nil
	}

	out := make([]domain.Entity, 0, len(rows))
	for _, row := range rows {
		matched := true
		for _, cond := range where {
			value, ok := row.Field(cond.Field)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownField, cond.Field)
			}
			cmp, err := Compare(value, cond.Value)
			if err != nil {
				return nil, fmt.Errorf("filter by %s: %w", cond.Field, err)
			}
			if cmp != 0 {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, row)
		}
	}
	return out, nil
}

// Sort стабильно сортирует сущности. Равные ключи сохраняют исходный порядок.
func Sort(rows []domain.Entity, ordering *spec.Ordering) error {
	if ordering == nil || len(rows) < 2 {
		return nil
	}

	keys := make([]any, len(rows))
	for i, row := range rows {
		value, ok := row.Field(ordering.Field)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, ordering.Field)
		}
		keys[i] = value
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}

	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		cmp, err := Compare(keys[idx[a]], keys[idx[b]])
		if err != nil {
			sortErr = err
			return false
		}
		if ordering.Direction == spec.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
	if sortErr != nil {
		return fmt.Errorf("order by %s: %w", ordering.Field, sortErr)
	}

	sorted := make([]domain.Entity, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
	return nil
}

// Paginate вырезает окно [skip, skip+take).
func Paginate(rows []domain.Entity, page *spec.Paging) []domain.Entity {
	if page == nil {
		return rows
	}
	if page.Skip >= len(rows) {
		return []domain.Entity{}
	}
	end := len(rows)
	if page.Take < len(rows)-page.Skip {
		end = page.Skip + page.Take
	}
	return rows[page.Skip:end]
}

// Compare сравнивает значения полей. Целые приводятся к int64,
// строковые типы к string.
func Compare(a, b any) (int, error) {
	a, b = normalize(a), normalize(b)

	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case string:
		bv, ok := b.(string)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			break
		}
		return av.Compare(bv), nil
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		if !ok {
			break
		}
		return av.Cmp(bv), nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			break
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		}
		return 1, nil
	}

	return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case domain.OrderStatus:
		return string(x)
	case domain.OutboxStatus:
		return string(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}
