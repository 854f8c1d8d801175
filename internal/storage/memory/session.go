package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

// Session — сессия поверх in-memory базы. Чтения видят только
// зафиксированное состояние, изменения копятся до SaveChanges.
type Session struct {
	db      *Database
	pending []storage.Change
	closed  bool
}

var _ storage.Session = (*Session)(nil)

func (s *Session) Find(ctx context.Context, q storage.Query) ([]domain.Entity, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.db.find(q)
}

func (s *Session) Count(ctx context.Context, name storage.Table, where []spec.Condition) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return s.db.count(name, where)
}

func (s *Session) Stage(change storage.Change) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if !isKnownTable(change.Table) {
		return unknownTable(change.Table)
	}
	s.pending = append(s.pending, change)
	return nil
}

// SaveChanges применяет все отложенные изменения одной атомарной операцией.
// При ошибке изменения остаются отложенными.
func (s *Session) SaveChanges(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if len(s.pending) == 0 {
		return 0, nil
	}

	rows, err := s.db.flush(s.pending)
	if err != nil {
		return 0, fmt.Errorf("save changes: %w", err)
	}
	s.pending = nil
	return rows, nil
}

// Close закрывает сессию. Повторный вызов безопасен.
func (s *Session) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}

func (s *Session) ready(ctx context.Context) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	return ctx.Err()
}
