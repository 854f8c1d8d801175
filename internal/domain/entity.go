package domain

// Entity — сохраняемая сущность с числовым идентификатором.
// Нулевой ID означает, что идентичность ещё не присвоена хранилищем.
type Entity interface {
	GetID() int64
	SetID(id int64)
	// Field возвращает значение поля по имени для фильтрации и сортировки.
	Field(name string) (any, bool)
	// Clone возвращает глубокую копию, независимую от исходной.
	Clone() Entity
}

// Общие имена полей.
const (
	FieldID = "id"
)
