// Package spec описывает переиспользуемые критерии выборки сущностей:
// фильтр, подгружаемые связи, сортировку и пагинацию.
package spec

// Direction задаёт направление сортировки.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Condition — условие равенства поля значению.
type Condition struct {
	Field string
	Value any
}

// Ordering описывает единственную активную сортировку.
type Ordering struct {
	Field     string
	Direction Direction
}

// Paging описывает окно выборки. Skip и Take всегда задаются вместе.
type Paging struct {
	Skip int
	Take int
}

// Specification — неизменяемое описание запроса к сущностям типа T.
// Каждый метод-построитель возвращает новую копию, исходная не меняется.
// Условия из Where объединяются через AND.
type Specification[T any] struct {
	criteria []Condition
	includes []string
	ordering *Ordering
	paging   *Paging
}

// New возвращает пустую спецификацию: без фильтра и без пагинации она
// выбирает все строки.
func New[T any]() Specification[T] {
	return Specification[T]{}
}

// Where добавляет условие равенства.
func (s Specification[T]) Where(field string, value any) Specification[T] {
	out := s.clone()
	out.criteria = append(out.criteria, Condition{Field: field, Value: value})
	return out
}

// Include добавляет связи для подгрузки. Повторы игнорируются, порядок сохраняется.
func (s Specification[T]) Include(paths ...string) Specification[T] {
	out := s.clone()
	for _, path := range paths {
		if path == "" || contains(out.includes, path) {
			continue
		}
		out.includes = append(out.includes, path)
	}
	return out
}

// OrderBy задаёт сортировку по возрастанию и заменяет предыдущую.
func (s Specification[T]) OrderBy(field string) Specification[T] {
	return s.orderBy(field, Ascending)
}

// OrderByDescending задаёт сортировку по убыванию и заменяет предыдущую.
func (s Specification[T]) OrderByDescending(field string) Specification[T] {
	return s.orderBy(field, Descending)
}

// Page включает пагинацию. Отрицательный skip приводится к нулю,
// take < 1 оставляет пагинацию выключенной.
func (s Specification[T]) Page(skip, take int) Specification[T] {
	out := s.clone()
	if take < 1 {
		out.paging = nil
		return out
	}
	if skip < 0 {
		skip = 0
	}
	out.paging = &Paging{Skip: skip, Take: take}
	return out
}

// Criteria возвращает копию условий фильтра.
func (s Specification[T]) Criteria() []Condition {
	return append([]Condition(nil), s.criteria...)
}

// Includes возвращает копию списка связей.
func (s Specification[T]) Includes() []string {
	return append([]string(nil), s.includes...)
}

// Ordering возвращает активную сортировку, если она задана.
func (s Specification[T]) Ordering() (Ordering, bool) {
	if s.ordering == nil {
		return Ordering{}, false
	}
	return *s.ordering, true
}

// Paging возвращает параметры пагинации, если она включена.
func (s Specification[T]) Paging() (Paging, bool) {
	if s.paging == nil {
		return Paging{}, false
	}
	return *s.paging, true
}

func (s Specification[T]) orderBy(field string, dir Direction) Specification[T] {
	out := s.clone()
	out.ordering = &Ordering{Field: field, Direction: dir}
	return out
}

func (s Specification[T]) clone() Specification[T] {
	out := Specification[T]{
		criteria: append([]Condition(nil), s.criteria...),
		includes: append([]string(nil), s.includes...),
	}
	if s.ordering != nil {
		o := *s.ordering
		out.ordering = &o
	}
	if s.paging != nil {
		p := *s.paging
		out.paging = &p
	}
	return out
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
