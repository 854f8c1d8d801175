package storage

import "errors"

var (
	// ErrSessionClosed — сессия уже закрыта.
	ErrSessionClosed = errors.New("storage session is closed")
	// ErrNoIdentity — изменение или удаление сущности без ID.
	ErrNoIdentity = errors.New("entity has no identity")
	// ErrUnknownTable — таблица не поддерживается хранилищем.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownField — поле нельзя использовать в фильтре или сортировке.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownInclude — связь не поддерживается таблицей.
	ErrUnknownInclude = errors.New("unknown include path")
	// ErrConcurrencyConflict — изменяемая строка уже удалена или изменена параллельно.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	// ErrDuplicateKey — вставка с уже занятым идентификатором.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKey — ссылка на несуществующую строку.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrIncomparable — значения нельзя сравнить.
	ErrIncomparable = errors.New("values are not comparable")
)
